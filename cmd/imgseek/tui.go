package main

import (
	"github.com/spf13/cobra"

	"imgseek/internal/controller"
	"imgseek/internal/tui"
)

// tuiCmd launches the interactive client
func tuiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [IMAGE]",
		Short: "Launch the interactive client",
		Long: `Launch a BubbleTea terminal UI for picking an image, previewing it and
browsing similar images. Logs go to {data-dir}/imgseek.log while the UI
owns the terminal.

Key bindings:
  Enter           Select the image path typed in the input
  Ctrl+S          Search for similar images
  Ctrl+R          Clear the selection and results
  PageUp/PageDown Scroll preview and results
  Ctrl+C          Quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.client()
			if err != nil {
				return err
			}

			ctrlOpts := controller.Options{
				Backend:   client,
				ServerURL: client.BaseURL(),
				Logger:    a.logger,
			}
			store, err := a.openHistory()
			if err != nil {
				a.logger.Warn("search history unavailable", "err", err)
			} else if store != nil {
				defer store.Close()
				ctrlOpts.Recorder = store
			}

			var initial string
			if len(args) == 1 {
				initial = args[0]
			}

			a.logger.Info("starting tui", "server", client.BaseURL())
			return tui.Run(tui.ModelConfig{
				Workflow:    controller.New(ctrlOpts),
				Fetcher:     client,
				ServerURL:   client.BaseURL(),
				TileWidth:   a.cfg.TileWidth,
				InitialPath: initial,
				Context:     cmd.Context(),
				Logger:      a.logger,
			})
		},
	}
}
