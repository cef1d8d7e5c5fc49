package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"s3ripper/pkg/config"
	"s3ripper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage s3ripper configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (S3RIPPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	RunE:  runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration, with the session id masked",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".s3ripper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Add collection ids under collections.ids")
	fmt.Println("2. Store your session id with 's3ripper auth login'")
	fmt.Println("3. Run 's3ripper rip'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if sid := display.Adobe.SessionID; sid != "" {
		if len(sid) > 8 {
			display.Adobe.SessionID = sid[:4] + "..." + sid[len(sid)-4:]
		} else {
			display.Adobe.SessionID = "***"
		}
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if cfg.Adobe.SessionID == "" {
		ui.PrintWarning("No ims_sid configured; stored accounts will be used")
	}
	if len(cfg.Collections.IDs) == 0 {
		ui.PrintWarning("No collections configured; pass ids to 'rip'")
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Collections: %d\n", len(cfg.Collections.IDs))
	fmt.Printf("  Pause: %d-%d seconds\n", cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay)
	fmt.Printf("  Attempts per request: %d\n", cfg.Transport.MaxAttempts)
	fmt.Printf("  On claim failure: %s\n", cfg.Claim.OnFailure)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
