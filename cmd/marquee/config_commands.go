package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"marquee/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage marquee configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			if ctx.configPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", ctx.configPath)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No config file found, defaults are valid")
			}
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config file: %s\n\n", ctx.configPath)
			} else {
				fmt.Fprintf(out, "Config file: (defaults, no file found)\n\n")
			}

			rows := [][]string{
				{"data_dir", cfg.Paths.DataDir},
				{"log_dir", cfg.Paths.LogDir},
				{"poster_cache_dir", cfg.Paths.PosterCacheDir},
				{"api_bind", cfg.Paths.APIBind},
				{"tmdb.base_url", cfg.TMDB.BaseURL},
				{"tmdb.language", cfg.TMDB.Language},
				{"pipeline.metadata_ttl_hours", fmt.Sprintf("%d", cfg.Pipeline.MetadataTTLHours)},
				{"pipeline.selection_timeout_minutes", fmt.Sprintf("%d", cfg.Pipeline.SelectionTimeoutMinutes)},
				{"pipeline.auto_select_margin", fmt.Sprintf("%.2f", cfg.Pipeline.AutoSelectMargin)},
				{"pipeline.republish_on_change", fmt.Sprintf("%t", cfg.Pipeline.RepublishOnChange)},
				{"render.template_version", cfg.Render.TemplateVersion},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var (
		forceFlag bool
		pathFlag  string
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathFlag
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path = filepath.Join(home, ".config", "marquee", "config.toml")
			}
			if _, err := os.Stat(path); err == nil && !forceFlag {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set tmdb.api_key before starting the daemon")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&pathFlag, "path", "", "Destination for the sample file")
	return cmd
}
