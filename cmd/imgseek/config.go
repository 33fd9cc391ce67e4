package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configCmd groups the client configuration subcommands
func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the client configuration",
	}
	cmd.AddCommand(configShowCmd(opts), configInitCmd(opts))
	return cmd
}

// configShowCmd prints the effective configuration after flags, environment
// and the config file are applied
func configShowCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			a, err := loadApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if output != formatTable {
				return writeStructured(w, output, a.cfg)
			}

			tw := newTable(w)
			fmt.Fprintf(tw, "Config file:\t%s\n", a.cfgPath)
			fmt.Fprintf(tw, "Data directory:\t%s\n", a.dirs.Root())
			fmt.Fprintf(tw, "Server URL:\t%s\n", a.cfg.ServerURL)
			fmt.Fprintf(tw, "Timeout:\t%s\n", a.cfg.Timeout())
			fmt.Fprintf(tw, "Log level:\t%s\n", a.cfg.LogLevel)
			fmt.Fprintf(tw, "History:\t%t\n", a.cfg.History())
			fmt.Fprintf(tw, "History path:\t%s\n", a.cfg.ResolveHistoryPath(a.dirs.HistoryPath()))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

// configInitCmd writes the effective configuration to the config file
func configInitCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file",
		Long: `Write the effective configuration to the config file so it can be edited.
Values from --server and IMGSEEK_* variables are written too.

Examples:
  imgseek config init
  imgseek config init --server http://gpu-box:5000 --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := os.Stat(a.cfgPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", a.cfgPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("cannot access config file: %w", err)
			}

			if err := a.cfg.Save(a.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.cfgPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
