package main

import (
	"fmt"
	"os"

	"github.com/franz/card-indexer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "cdx",
		Short: "Card Indexer - index the Scryfall bulk catalog and sync card images",
		Long: `cdx (Card Indexer) keeps a local card catalog in sync with the Scryfall
bulk data exports. It downloads bulk snapshots when they go stale, builds a
searchable SQLite index from them, and fills a local image directory tree
with the card scans the index references.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/cdx.yaml)")
	rootCmd.PersistentFlags().String("db", "cdx-index.db", "card index database file")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for downloaded bulk datasets")
	rootCmd.PersistentFlags().String("images-dir", "images", "root of the card image tree")
	rootCmd.PersistentFlags().Bool("offline", false, "never touch the network")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "download worker count (default 12)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("images-dir", rootCmd.PersistentFlags().Lookup("images-dir"))
	viper.BindPFlag("offline", rootCmd.PersistentFlags().Lookup("offline"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("cdx")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("CDX")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

// applyLogFlags sets the log level from the global flags
func applyLogFlags() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
