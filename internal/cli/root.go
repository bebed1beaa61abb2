package cli

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/accordhq/accord/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "accord",
	Short: "Accord - policy-to-control compiler and evidence query synthesizer",
	Long: `Accord compiles written policy documents into reviewable assessment
hierarchies and synthesizes the SQL that checks them against evidence data.

It does not decide what a policy should require, and it does not decide
what is compliant.

Accord extracts obligation statements from policy text, arranges them into
an assessment tree, traces the evidence schemas linked controls depend on,
and emits the queries an auditor would review and run.

Generated SQL is a starting point for review, not a verdict.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Accord.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("accord v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.accord/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.accord")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ACCORD_*
	viper.SetEnvPrefix("ACCORD")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: defaults first, then config
// file and environment overrides. Flags are applied on top by each command.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()
	err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring invalid configuration: %v\n", err)
		return model.DefaultConfig()
	}
	return cfg
}
