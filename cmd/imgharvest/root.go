package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"imgharvest/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	outputDir  string
	logLevel   string
	rateLimit  int
	useTUI     bool
	noColor    bool
	notify     bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgharvest",
	Short: "Download numbered image sequences and find larger copies by reverse image search",
	Long: `imgharvest fetches images in bulk.

It can:
  - walk a numbered URL range such as http://host/img_{001}.jpg up to a bound
  - reverse-search local images and download larger copies of them
  - mine reverse-search results for numbered sequences and download those

Every task reports through one ordered progress log. Ctrl-C stops the
running task after its current download.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || useTUI {
			return
		}
		switch cmd.Name() {
		case "version", "help", "show", "init", "validate":
			return
		}
		ui.PrintLogo(cmd.ErrOrStderr(), palette())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(os.Stderr, palette(), "Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.imgharvest.yaml or ~/.config/imgharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute, 0 for no limit")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with live progress")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when each task finishes")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print the final summary")

	rootCmd.SetVersionTemplate(`imgharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// palette enables colors only on a terminal
func palette() ui.Palette {
	return ui.Palette{Enabled: !noColor && isTerminal(os.Stdout)}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// flagOverrides collects the persistent flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	return flags
}
