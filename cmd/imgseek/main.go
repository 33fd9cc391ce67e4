package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imgseek/internal/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	server  string
	cfgFile string
	dataDir string
	verbose bool
}

// newRootCmd creates the imgseek command tree
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "imgseek",
		Short: "Find visually similar images on an image-search server",
		Long: `imgseek uploads an image to an image similarity search server and shows
the closest matches it knows about.

Run "imgseek tui" for the interactive client or "imgseek search IMAGE" to
print matches from scripts.`,
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", "", "search server URL (default from config, then http://localhost:5000)")
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "client config file (default {data-dir}/client.json)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default ~/.imgseek)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		searchCmd(opts),
		tuiCmd(opts),
		historyCmd(opts),
		configCmd(opts),
		versionCmd(),
	)

	return cmd
}

// versionCmd shows build information
func versionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetBuildInfo()
			w := cmd.OutOrStdout()

			if output != formatTable {
				return writeStructured(w, output, info)
			}

			fmt.Fprintf(w, "imgseek %s\n", version.Full())
			if info.GitCommit != "unknown" {
				fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
			}
			if info.BuildDate != "unknown" {
				fmt.Fprintf(w, "Build date: %s\n", info.BuildDate)
			}
			fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
