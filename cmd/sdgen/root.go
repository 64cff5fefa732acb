package cmd

import (
	"fmt"
	"os"
	"strings"

	run "github.com/sdgen-ai/sdgen-server/cmd/sdgen/run"
	"github.com/sdgen-ai/sdgen-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const sdgenPrefix = "SDGEN"

var rootCmd = &cobra.Command{
	Use:   "sdgen",
	Short: "sdgen server CLI",
	Long:  "A local image-generation server: text-to-image, image-to-image and upscaling over a diffusion worker, with generation history",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(sdgenPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`,
			`.`, `_`,
		))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		// Load config and env files
		if err := config.LoadEnvAndConfigFiles(); err != nil {
			return err
		}

		return nil
	},
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := rootCmd.PersistentFlags()

	pflags.String("sdgen-home", "", "Path to the sdgen home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	viper.BindPFlag("sdgen_home", pflags.Lookup("sdgen-home"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	rootCmd.AddCommand(run.Cmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
