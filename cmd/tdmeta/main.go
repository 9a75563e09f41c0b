package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/session"
	_ "github.com/redbco/tdmeta/pkg/connector/rest"
)

var (
	configFile  string
	dsn         string
	metricsFile string
	verbose     bool
	version     = "0.1.0"
	// Build information, set through -ldflags.
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	sess *session.Session
)

func printVersionInfo() {
	fmt.Printf("tdmeta v%s (build %s)\n", version, Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "tdmeta",
	Short:         "TDengine metadata catalog",
	Long:          "Manage the catalog of stores, collectors and points kept in a TDengine database.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.HasParent() {
			return nil
		}
		s, err := session.Open(session.Options{
			ConfigFile:  configFile,
			DSN:         dsn,
			MetricsFile: metricsFile,
			Verbose:     verbose,
		})
		if err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}
		sess = s
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sess == nil {
			return nil
		}
		return sess.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

func execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if sess != nil {
			_ = sess.Close()
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.ExpandEnv(session.DefaultConfigFile), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Connection DSN, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write connector metrics to this file on exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands()
}

func main() {
	os.Exit(execute())
}
