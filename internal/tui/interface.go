package tui

import (
	"context"

	"imgseek/internal/controller"
	"imgseek/internal/imagefile"
)

// Workflow is the part of the controller the TUI drives.
// *controller.Controller implements it.
type Workflow interface {
	Subscribe(fn func(controller.Event)) func()
	View() controller.ViewModel
	Busy() bool
	HandleFile(ctx context.Context, candidate imagefile.Candidate) error
	SearchSimilar(ctx context.Context) error
	ClearUpload()
}
