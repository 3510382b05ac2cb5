package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgharvest/pkg/config"
	"imgharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgharvest configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (IMGHARVEST_*)
  - .env files
  - Configuration file (YAML or TOML)
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file holding every default",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.imgharvest.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it.

This command checks:
  - file syntax
  - value ranges and the candidate regular expression
  - that the output and log directories can be created`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".imgharvest.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.PrintSuccess(out, palette(), "Configuration file created: "+path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Adjust the search markers and thresholds if needed")
	fmt.Fprintln(out, "2. Run 'imgharvest config validate' to check the configuration")
	fmt.Fprintln(out, "3. Start with 'imgharvest sequence <url> --to N' or 'imgharvest search <path>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	source := "(defaults only)"
	if configFile != "" {
		source = configFile
	}
	fmt.Fprintf(out, "\n# configuration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p := palette()

	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		var problems []string
		if joined, ok := errors.Unwrap(err).(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				problems = append(problems, e.Error())
			}
		}
		if len(problems) == 0 {
			return err
		}
		ui.PrintError(out, p, "Configuration has errors:", nil)
		for _, msg := range problems {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
		return errors.New("invalid configuration")
	}

	var warnings []string
	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		warnings = append(warnings, "rate limiting is off; the search endpoint may throttle you")
	}
	if cfg.Download.MinCooldown == 0 && cfg.Download.MaxCooldown == 0 {
		warnings = append(warnings, "download cooldown is off")
	}

	for _, w := range warnings {
		ui.PrintWarning(out, p, "warning: "+w)
	}
	ui.PrintSuccess(out, p, "Configuration is valid")

	fmt.Fprintln(out, "\nConfiguration summary:")
	ui.PrintInfo(out, p, "  Output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo(out, p, "  Search endpoint", cfg.Search.Endpoint)
	ui.PrintInfo(out, p, "  Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute))
	ui.PrintInfo(out, p, "  Minimum file size", fmt.Sprintf("%d bytes", cfg.Download.MinFileSize))
	ui.PrintInfo(out, p, "  Log level", cfg.Logging.Level)
	return nil
}
