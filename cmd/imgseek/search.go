package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"imgseek/internal/controller"
	"imgseek/internal/imagefile"
	"imgseek/internal/preview"
)

// searchReport is what `imgseek search` prints.
type searchReport struct {
	Query   string      `json:"query" yaml:"query"`
	Size    string      `json:"size" yaml:"size"`
	Server  string      `json:"server" yaml:"server"`
	Results []resultRow `json:"results" yaml:"results"`
}

type resultRow struct {
	Rank       int     `json:"rank" yaml:"rank"`
	Filename   string  `json:"filename" yaml:"filename"`
	Path       string  `json:"path" yaml:"path"`
	URL        string  `json:"url,omitempty" yaml:"url,omitempty"`
	Distance   float64 `json:"distance" yaml:"distance"`
	Similarity float64 `json:"similarity_percent" yaml:"similarity_percent"`
}

// searchCmd runs one upload and similarity search without the TUI
func searchCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "search IMAGE",
		Short: "Search for images similar to IMAGE",
		Long: `Upload IMAGE to the search server and print the five most similar images.

Examples:
  imgseek search cat.jpg
  imgseek search ~/Pictures/beach.png --output json
  imgseek search photo.gif --server http://gpu-box:5000 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			return runSearch(cmd, opts, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func runSearch(cmd *cobra.Command, opts *globalOptions, path, output string) error {
	a, err := loadApp(opts, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client()
	if err != nil {
		return err
	}

	candidate, err := imagefile.FromPath(path)
	if err != nil {
		return err
	}

	ctrlOpts := controller.Options{
		Backend:   client,
		ServerURL: client.BaseURL(),
		Logger:    a.logger,
		// The CLI never shows the preview.
		Decoder: func([]byte) (*preview.Image, error) { return nil, nil },
	}
	store, err := a.openHistory()
	if err != nil {
		a.logger.Warn("search history unavailable", "err", err)
	} else if store != nil {
		defer store.Close()
		ctrlOpts.Recorder = store
	}
	ctrl := controller.New(ctrlOpts)

	ctx := cmd.Context()
	if err := ctrl.HandleFile(ctx, candidate); err != nil {
		return err
	}
	if err := ctrl.SearchSimilar(ctx); err != nil {
		return err
	}

	vm := ctrl.View()
	report := searchReport{
		Query:   vm.Selected.Name,
		Size:    vm.Selected.SizeText(),
		Server:  client.BaseURL(),
		Results: make([]resultRow, 0, len(vm.Results)),
	}
	for _, r := range vm.Results {
		row := resultRow{
			Rank:       r.Rank,
			Filename:   r.Filename,
			Path:       r.Path,
			Distance:   r.Distance,
			Similarity: r.SimilarityPercent,
		}
		if u, err := client.ResolvePath(r.Path); err == nil {
			row.URL = u
		}
		report.Results = append(report.Results, row)
	}

	w := cmd.OutOrStdout()
	if output != formatTable {
		return writeStructured(w, output, report)
	}
	return printSearchTable(w, report, vm.Results)
}

func printSearchTable(w io.Writer, report searchReport, results []controller.ResultView) error {
	fmt.Fprintf(w, "Query: %s (%s)\n\n", report.Query, report.Size)
	if len(results) == 0 {
		fmt.Fprintln(w, controller.EmptyTitle)
		fmt.Fprintln(w, controller.EmptyHint)
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tFILENAME\tSIMILARITY\tDISTANCE\tPATH")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Rank, truncate(r.Filename, 40), r.SimilarityText, r.DistanceText, r.Path)
	}
	return tw.Flush()
}
