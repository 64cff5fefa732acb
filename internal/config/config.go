package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdgen-ai/sdgen-server/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const envPrefix = "SDGEN"

type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
	SdgenHome   string `mapstructure:"sdgen_home"`
	AssetsDir   string `mapstructure:"assets_dir"`
	HistoryDir  string `mapstructure:"history_dir"`
	TempDir     string `mapstructure:"temp_dir"`
	PublicDir   string `mapstructure:"public_dir"`

	// Diffusion worker connection
	WorkerAddr string `mapstructure:"worker_addr"`
	TcpTimeout int    `mapstructure:"tcp_timeout"`

	// Model alias -> worker model identifier
	Models       map[string]string `mapstructure:"models"`
	WarmupModels []string          `mapstructure:"warmup_models"`

	UpscaleBackend string `mapstructure:"upscale_backend"`

	Filesystem string        `mapstructure:"filesystem_type"`
	S3         *S3Config     `mapstructure:"s3"`
	OpenAI     *OpenAIConfig `mapstructure:"openai"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	VanityUrl   string `mapstructure:"vanity_url"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

var config *Config

// LoadEnvAndConfigFiles resolves the sdgen home directory, loads .env and
// config.yaml from it, and binds everything into viper.
func LoadEnvAndConfigFiles() error {
	sdgenHome, err := getSdgenHome()
	if err != nil {
		return err
	}

	if err := createHomeDirs(sdgenHome); err != nil {
		return err
	}

	viper.Set("sdgen_home", sdgenHome)
	for key, subdir := range map[string]string{
		"assets_dir":  "assets",
		"history_dir": "history",
		"temp_dir":    "temp",
	} {
		if viper.GetString(key) == "" {
			viper.Set(key, filepath.Join(sdgenHome, subdir))
		}
	}

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(sdgenHome, ".env")
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	configFile := viper.GetString("config_file")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(sdgenHome)
	}

	if err := LoadConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			fmt.Println("No config file found. Using default config.")
			return unmarshalConfig()
		}
		return err
	}

	return nil
}

func LoadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		return err
	}

	return unmarshalConfig()
}

func unmarshalConfig() error {
	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	applyDefaults(config)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.WorkerAddr == "" {
		cfg.WorkerAddr = DefaultWorkerAddr
	}
	if cfg.TcpTimeout == 0 {
		cfg.TcpTimeout = DefaultTcpTimeout
	}
	if cfg.Filesystem == "" {
		cfg.Filesystem = FilesystemLocal
	}
	if cfg.UpscaleBackend == "" {
		cfg.UpscaleBackend = "auto"
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	}
}

func GetConfig() *Config {
	return config
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

// Returns the sdgen home directory path, trying in order:
// 1. The `sdgen_home` flag from viper.
// 2. The `SDGEN_HOME` environment variable.
// 3. The default `~/.sdgen`.
func getSdgenHome() (string, error) {
	sdgenHome := viper.GetString("sdgen_home")
	if sdgenHome == "" {
		sdgenHome = os.Getenv("SDGEN_HOME")
		if sdgenHome == "" {
			sdgenHome = DefaultSdgenHome
		}
	}

	sdgenHome, err := pathutil.ExpandPath(sdgenHome)
	if err != nil {
		return "", fmt.Errorf("failed to expand sdgen home path: %w", err)
	}

	return sdgenHome, nil
}

func createHomeDirs(sdgenHome string) error {
	if sdgenHome == "" {
		return ErrSdgenHomeNotSet
	}

	subdirs := []string{"assets", "history", "temp"}
	if err := os.MkdirAll(sdgenHome, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create sdgen home directory: %w", err)
	}

	for _, subdir := range subdirs {
		dir := filepath.Join(sdgenHome, subdir)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return nil
}
