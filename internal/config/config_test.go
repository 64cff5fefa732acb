package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, DefaultWorkerAddr, cfg.WorkerAddr)
	assert.Equal(t, DefaultTcpTimeout, cfg.TcpTimeout)
	assert.Equal(t, FilesystemLocal, cfg.Filesystem)
	assert.Equal(t, "auto", cfg.UpscaleBackend)
	assert.Equal(t, DefaultModels(), cfg.Models)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Port:   9000,
		Host:   "0.0.0.0",
		Models: map[string]string{"custom": "org/custom-model"},
	}
	applyDefaults(cfg)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, map[string]string{"custom": "org/custom-model"}, cfg.Models)
}

func TestDefaultModels(t *testing.T) {
	models := DefaultModels()
	assert.Equal(t, "runwayml/stable-diffusion-v1-5", models["SD1.5"])
	assert.Equal(t, "stabilityai/sd-turbo", models["Turbo"])
}

func TestLoadEnvAndConfigFiles(t *testing.T) {
	home := filepath.Join(t.TempDir(), "sdgen-home")
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("sdgen_home", home)

	require.NoError(t, LoadEnvAndConfigFiles())

	cfg := MustGetConfig()
	assert.Equal(t, home, cfg.SdgenHome)
	assert.Equal(t, filepath.Join(home, "history"), cfg.HistoryDir)
	assert.Equal(t, filepath.Join(home, "assets"), cfg.AssetsDir)
	assert.Equal(t, DefaultPort, cfg.Port)

	for _, subdir := range []string{"assets", "history", "temp"} {
		assert.DirExists(t, filepath.Join(home, subdir))
	}
}

func TestLoadEnvAndConfigFilesReadsYaml(t *testing.T) {
	home := filepath.Join(t.TempDir(), "sdgen-home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(
		"port: 8080\nenvironment: prod\nmodels:\n  Custom: org/custom\n"), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("sdgen_home", home)

	require.NoError(t, LoadEnvAndConfigFiles())

	cfg := MustGetConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, map[string]string{"Custom": "org/custom"}, cfg.Models)
}

func TestCreateHomeDirsEmpty(t *testing.T) {
	assert.ErrorIs(t, createHomeDirs(""), ErrSdgenHomeNotSet)
}
