package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"imgseek/internal/controller"
	"imgseek/internal/history"
	"imgseek/internal/imagefile"
	"imgseek/internal/searchapi"
)

var errHistoryDisabled = errors.New("local search history is disabled (history_enabled is false)")

// historyCmd shows past searches, local by default or the server's uploads
func historyCmd(opts *globalOptions) *cobra.Command {
	var (
		remote bool
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past searches",
		Long: `Show searches recorded on this machine, newest first.

With --remote, show the most recent uploads the server knows about instead.

Examples:
  imgseek history
  imgseek history --limit 10 -o json
  imgseek history --remote
  imgseek history show 0b6f1c2e-8d1a-4f3e-9a51-2f4b7c9d0e11`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			a, err := loadApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if remote {
				return runRemoteHistory(cmd, a, limit, output)
			}
			return runLocalHistory(cmd, a, limit, output)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "list uploads stored on the server")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "maximum number of entries")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")

	cmd.AddCommand(historyShowCmd(opts), historyPruneCmd(opts))
	return cmd
}

// historyShowCmd prints one local search with all of its results
func historyShowCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one local search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			a, err := loadApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			search, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no search with ID %s", args[0])
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != formatTable {
				return writeStructured(w, output, search)
			}
			return printSearch(w, search)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

// historyPruneCmd deletes all but the newest local searches
func historyPruneCmd(opts *globalOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old local searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			a, err := loadApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d searches, kept the newest %d\n", n, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", history.DefaultLimit, "number of searches to keep")
	return cmd
}

func runLocalHistory(cmd *cobra.Command, a *app, limit int, output string) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()

	searches, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if output != formatTable {
		if searches == nil {
			searches = []history.Search{}
		}
		return writeStructured(w, output, searches)
	}
	return printLocalHistory(w, searches)
}

func printLocalHistory(w io.Writer, searches []history.Search) error {
	if len(searches) == 0 {
		fmt.Fprintln(w, "No searches recorded yet.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSEARCHED\tQUERY\tSIZE\tRESULTS\tBEST MATCH")
	for _, s := range searches {
		best := "-"
		if len(s.Results) > 0 {
			top := controller.NewResultView(1, s.Results[0])
			best = fmt.Sprintf("%s (%s)", truncate(top.Filename, 30), top.SimilarityText)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID,
			s.SearchedAt.Local().Format(time.DateTime),
			truncate(s.QueryName, 30),
			imagefile.FormatSize(s.QuerySize),
			len(s.Results),
			best,
		)
	}
	return tw.Flush()
}

func printSearch(w io.Writer, s *history.Search) error {
	fmt.Fprintf(w, "Searched: %s\n", s.SearchedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Server:   %s (stored as %s)\n", s.ServerURL, s.ServerFile)

	report := searchReport{
		Query:  s.QueryName,
		Size:   imagefile.FormatSize(s.QuerySize),
		Server: s.ServerURL,
	}
	views := make([]controller.ResultView, len(s.Results))
	for i, r := range s.Results {
		views[i] = controller.NewResultView(i+1, r)
	}
	return printSearchTable(w, report, views)
}

func runRemoteHistory(cmd *cobra.Command, a *app, limit int, output string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	records, err := client.History(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) > limit {
		records = records[:limit]
	}

	w := cmd.OutOrStdout()
	if output != formatTable {
		if records == nil {
			records = []searchapi.UploadRecord{}
		}
		return writeStructured(w, output, records)
	}
	return printRemoteHistory(w, records)
}

func printRemoteHistory(w io.Writer, records []searchapi.UploadRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "The server has no uploads.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUPLOADED\tORIGINAL NAME\tSTORED AS\tSIZE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.UploadDate,
			truncate(r.OriginalFilename, 30),
			truncate(r.Filename, 40),
			imagefile.FormatSize(r.FileSize),
		)
	}
	return tw.Flush()
}
