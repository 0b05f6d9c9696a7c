package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-cmis/pkg/cmis/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "cmis-server",
		Short: "Simple CMIS content repository",
		Long: `Simple CMIS content repository

Serves an in-memory CMIS repository over HTTP. Configuration is read from
CMIS_* environment variables (a .env file in the current directory is
loaded first) and optionally from a YAML config file.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewTypesCommand())

	return rootCmd
}

// loadConfig reads the config file, if any, then the environment. The
// extra options are applied last.
func loadConfig(cmd *cobra.Command, extra ...config.Option) (*config.ServerConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")

	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithFile(configFile))
	}
	opts = append(opts, config.WithEnv())
	opts = append(opts, extra...)

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
