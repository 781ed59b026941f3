package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YoungY620/mrequires/core/config"
)

var (
	// Version is set by main.go from build flags
	Version = "dev"

	// Global flags
	pathFlag   string
	logLevel   string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "mrequires",
	Short: "Minimal JS/CSS module bundler",
	Long: `mrequires follows mRequires("Name.space.module") directives from an entry
file and concatenates what they pull in.

Commands:
  build    Bundle one file to stdout, or every target in mrequires.yaml
  watch    Build every target, then rebuild when sources change
  serve    Serve modules to a page that loads them at runtime
  resolve  Print the path a module name resolves to`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&pathFlag, "path", "p", "", "project directory (default: current dir)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", config.DefaultFile, "config file, relative to the project directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: error/notice/info/debug")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

// resolveWorkDir resolves the working directory from the path flag
func resolveWorkDir() (string, error) {
	workDir := pathFlag
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	return filepath.Abs(workDir)
}
