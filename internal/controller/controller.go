// Package controller implements the upload/search workflow behind the
// interactive and command-line clients. It owns all workflow state and
// publishes ViewModel snapshots to subscribers.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"imgseek/internal/history"
	"imgseek/internal/imagefile"
	"imgseek/internal/preview"
	"imgseek/internal/searchapi"
)

var (
	// ErrNoImageSelected is returned by SearchSimilar when nothing is selected.
	ErrNoImageSelected = errors.New("please select an image first")

	// ErrSuperseded is returned when a newer search, selection or reset
	// replaced the request before it finished. Its outcome was discarded.
	ErrSuperseded = errors.New("request superseded")
)

// DefaultPreviewCols is the preview thumbnail width in terminal columns.
const DefaultPreviewCols = 32

// Backend is the pair of endpoints the workflow drives.
type Backend interface {
	Upload(ctx context.Context, name string, data []byte) (*searchapi.UploadResponse, error)
	Search(ctx context.Context, filename string, k int) ([]searchapi.SearchResult, error)
}

// Recorder persists completed searches.
type Recorder interface {
	Record(ctx context.Context, search *history.Search) error
}

// Decoder turns an image payload into a displayable thumbnail.
type Decoder func(data []byte) (*preview.Image, error)

// Options configures a Controller.
type Options struct {
	Backend     Backend
	Recorder    Recorder
	Decoder     Decoder
	PreviewCols int
	ServerURL   string
	Logger      *log.Logger
}

// Controller drives selection, preview, upload, search and reset.
// It is safe for concurrent use.
type Controller struct {
	backend   Backend
	recorder  Recorder
	decode    Decoder
	serverURL string
	logger    *log.Logger

	mu        sync.Mutex
	view      ViewModel
	selection uint64 // bumped on every selection and reset
	requests  uint64 // last issued request token
	current   uint64 // token whose outcome may still be applied; 0 when none

	subMu     sync.RWMutex
	subs      map[int]func(Event)
	nextSubID int
}

// New creates a controller in the empty state.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cols := opts.PreviewCols
	if cols <= 0 {
		cols = DefaultPreviewCols
	}
	decode := opts.Decoder
	if decode == nil {
		decode = func(data []byte) (*preview.Image, error) {
			return preview.Decode(data, cols)
		}
	}

	return &Controller{
		backend:   opts.Backend,
		recorder:  opts.Recorder,
		decode:    decode,
		serverURL: opts.ServerURL,
		logger:    logger.WithPrefix("controller"),
		view:      ViewModel{Phase: PhaseEmpty},
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn is called synchronously from the goroutine that changed
// the state, so it must not block.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// View returns the current snapshot.
func (c *Controller) View() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Busy reports whether a search is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Loading
}

// HandleFile validates a candidate and, if accepted, makes it the selected
// image and publishes its preview. A rejected candidate leaves all state
// untouched and raises an alert.
func (c *Controller) HandleFile(ctx context.Context, candidate imagefile.Candidate) error {
	img, err := imagefile.Read(candidate)
	if err != nil {
		c.logger.Warn("file rejected", "file", candidate.Name, "type", candidate.MediaType, "size", candidate.Size, "err", err)
		c.alert(alertText(err))
		return err
	}

	c.mu.Lock()
	c.selection++
	gen := c.selection
	c.current = 0
	c.view.Selected = img
	c.view.PickerValue = img.Name
	c.view.Phase = PhaseSelected
	c.view.Preview = nil
	c.view.PreviewVisible = false
	c.view.Loading = false
	c.view.Results = nil
	c.view.ResultsVisible = false
	c.view.EmptyState = false
	c.view.Error = ""
	c.view.ScrollTo = SectionNone
	ev := c.commitLocked("")
	c.mu.Unlock()
	c.publish(ev)

	c.logger.Info("image selected", "file", img.Name, "size", img.SizeText())

	p := &Preview{
		Name:      img.Name,
		MediaType: img.MediaType,
		SizeText:  img.SizeText(),
	}
	decoded, err := c.decode(img.Data)
	if err != nil {
		c.logger.Warn("preview unavailable", "file", img.Name, "err", err)
		p.DecodeError = err.Error()
	} else {
		p.Image = decoded
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.selection != gen {
		c.mu.Unlock()
		return nil
	}
	c.view.Preview = p
	c.view.PreviewVisible = true
	c.view.ScrollTo = SectionPreview
	ev = c.commitLocked("")
	c.mu.Unlock()
	c.publish(ev)

	return nil
}

// SearchSimilar uploads the selected image and asks for its nearest
// neighbours. Any failure aborts the workflow with a single alert. If a
// newer search, selection or reset happens meanwhile, the outcome is
// discarded and ErrSuperseded is returned.
func (c *Controller) SearchSimilar(ctx context.Context) error {
	c.mu.Lock()
	img := c.view.Selected
	if img == nil {
		c.mu.Unlock()
		c.alert(ErrNoImageSelected.Error())
		return ErrNoImageSelected
	}
	c.requests++
	token := c.requests
	c.current = token
	c.view.RequestID = token
	c.view.Phase = PhaseLoading
	c.view.Loading = true
	c.view.ResultsVisible = false
	c.view.Error = ""
	c.view.ScrollTo = SectionNone
	ev := c.commitLocked("")
	c.mu.Unlock()
	c.publish(ev)

	logger := c.logger.With("request", token, "file", img.Name)
	logger.Info("search started", "phase", "upload")

	uploaded, err := c.backend.Upload(ctx, img.Name, img.Data)
	if err != nil {
		return c.fail(token, logger, err)
	}
	if !c.isCurrent(token) {
		logger.Debug("discarding superseded upload")
		return ErrSuperseded
	}

	logger.Info("upload complete", "phase", "search", "token", uploaded.Filename)

	results, err := c.backend.Search(ctx, uploaded.Filename, searchapi.DefaultK)
	if err != nil {
		return c.fail(token, logger, err)
	}

	views := make([]ResultView, len(results))
	for i, r := range results {
		views[i] = NewResultView(i+1, r)
	}

	c.mu.Lock()
	if c.current != token {
		c.mu.Unlock()
		logger.Debug("discarding superseded results")
		return ErrSuperseded
	}
	c.current = 0
	c.view.Phase = PhaseResults
	c.view.Loading = false
	c.view.Results = views
	c.view.ResultsVisible = true
	c.view.EmptyState = len(views) == 0
	c.view.ScrollTo = SectionResults
	ev = c.commitLocked("")
	c.mu.Unlock()
	c.publish(ev)

	logger.Info("search complete", "results", len(views))
	c.record(ctx, logger, img, uploaded.Filename, results)
	return nil
}

// ClearUpload discards the selection and hides preview and results.
// Any search still in flight is discarded when it finishes.
func (c *Controller) ClearUpload() {
	c.mu.Lock()
	c.selection++
	c.current = 0
	version, requestID := c.view.Version, c.view.RequestID
	c.view = ViewModel{
		Version:   version,
		Phase:     PhaseEmpty,
		RequestID: requestID,
	}
	ev := c.commitLocked("")
	c.mu.Unlock()
	c.publish(ev)

	c.logger.Debug("selection cleared")
}

func (c *Controller) fail(token uint64, logger *log.Logger, err error) error {
	c.mu.Lock()
	if c.current != token {
		c.mu.Unlock()
		logger.Debug("discarding superseded failure", "err", err)
		return ErrSuperseded
	}
	msg := alertText(err)
	c.current = 0
	c.view.Phase = PhaseError
	c.view.Loading = false
	c.view.Results = nil
	c.view.ResultsVisible = false
	c.view.EmptyState = false
	c.view.Error = msg
	ev := c.commitLocked(msg)
	c.mu.Unlock()
	c.publish(ev)

	logger.Error("search failed", "err", err)
	return err
}

func (c *Controller) isCurrent(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == token
}

func (c *Controller) record(ctx context.Context, logger *log.Logger, img *imagefile.SelectedImage, serverFile string, results []searchapi.SearchResult) {
	if c.recorder == nil {
		return
	}
	entry := &history.Search{
		QueryName:  img.Name,
		QuerySize:  img.Size,
		MediaType:  img.MediaType,
		ServerFile: serverFile,
		ServerURL:  c.serverURL,
		Results:    results,
	}
	if err := c.recorder.Record(ctx, entry); err != nil {
		logger.Warn("failed to record search history", "err", err)
	}
}

// alert notifies subscribers without changing state.
func (c *Controller) alert(msg string) {
	c.mu.Lock()
	ev := Event{View: c.view, Alert: msg}
	c.mu.Unlock()
	c.publish(ev)
}

// commitLocked bumps the version and returns the event to publish once the
// lock is released.
func (c *Controller) commitLocked(alert string) Event {
	c.view.Version++
	return Event{View: c.view, Alert: alert}
}

func (c *Controller) publish(ev Event) {
	c.subMu.RLock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// alertText picks the message shown to the user for err.
func alertText(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "search canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}

	var ve *imagefile.ValidationError
	if errors.As(err, &ve) {
		return ve.Err.Error()
	}
	var ue *searchapi.UploadError
	if errors.As(err, &ue) {
		return ue.Message
	}
	var se *searchapi.SearchError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
