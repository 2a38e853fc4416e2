// Package cli implements the bintray command line tool.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rabbitmq/bintray-go"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bintray",
		Short: "Manage repositories, packages and files on Bintray",
		Long: `Bintray is a client for the Bintray package distribution platform.

It manages the full resource chain the API exposes:
  subject -> repository -> package -> version -> file

Credentials are read from --username/--api-key flags, the
BINTRAY_USERNAME and BINTRAY_API_KEY environment variables, or a
TOML config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Path to the TOML config file")
	rootCmd.PersistentFlags().String("username", "", "Bintray username")
	rootCmd.PersistentFlags().String("api-key", "", "Bintray API key")
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the Bintray API")
	rootCmd.PersistentFlags().String("dl-url", "", "Base URL of the Bintray download service")

	// Add subcommands
	rootCmd.AddCommand(NewRepoCmd())
	rootCmd.AddCommand(NewPackageCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewUploadCmd())
	rootCmd.AddCommand(NewDownloadCmd())
	rootCmd.AddCommand(NewDeleteFileCmd())

	return rootCmd
}

// clientFromFlags resolves the configuration chain (config file, then
// environment, then flags) and builds the API client.
func clientFromFlags(cmd *cobra.Command) (*bintray.Client, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if v, _ := cmd.Flags().GetString("username"); v != "" {
		cfg.Username = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := cmd.Flags().GetString("dl-url"); v != "" {
		cfg.DownloadBaseURL = v
	}

	return cfg.Client()
}
