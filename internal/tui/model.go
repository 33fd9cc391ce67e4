package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"imgseek/internal/controller"
	"imgseek/internal/imagefile"
	"imgseek/internal/preview"
)

// DefaultTileWidth is the result thumbnail width in columns.
const DefaultTileWidth = 24

// chromeHeight is the number of lines outside the scrollable body:
// header, input (with border), alert, status bar and help.
const chromeHeight = 6

// ModelConfig holds the configuration for creating a new TUI model
type ModelConfig struct {
	Workflow Workflow
	// Fetcher loads result tiles. If nil, every tile renders as a placeholder.
	Fetcher   preview.Fetcher
	ServerURL string
	TileWidth int
	// InitialPath is selected as soon as the program starts.
	InitialPath string
	// Context bounds every workflow call; it is canceled when the user quits.
	Context context.Context
	// Renderer is the Lip Gloss renderer to use for styling. If nil, the
	// default renderer is used.
	Renderer *lipgloss.Renderer
	Logger   *log.Logger
}

// Model is the root BubbleTea model
type Model struct {
	config   ModelConfig
	workflow Workflow
	bridge   *Bridge
	renderer *lipgloss.Renderer
	styles   Styles
	logger   *log.Logger
	keys     keyMap

	// Sub-models
	input     textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	help      help.Model
	statusBar StatusBarModel

	// Projected controller state
	view  controller.ViewModel
	alert string

	// Result tiles for tileRequest, keyed by result index
	tiles       map[int]preview.Tile
	tileRequest uint64

	resultsOffset int

	ctx      context.Context
	cancel   context.CancelFunc
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewModel creates the root TUI model and subscribes it to the workflow.
func NewModel(config ModelConfig) Model {
	r := config.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	styles := NewStyles(r)

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	if config.TileWidth <= 0 {
		config.TileWidth = DefaultTileWidth
	}
	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	ti := textinput.New()
	ti.Prompt = "image> "
	ti.Placeholder = "path to an image (" + strings.Join(imagefile.AllowedExtensions, ", ") + ")"
	ti.CharLimit = 4096
	ti.Cursor.Style = styles.WhiteCursor
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusBusy

	statusBar := NewStatusBarModel(styles)
	statusBar.ServerURL = config.ServerURL

	return Model{
		config:    config,
		workflow:  config.Workflow,
		bridge:    NewBridge(config.Workflow, logger),
		renderer:  r,
		styles:    styles,
		logger:    logger.WithPrefix("tui"),
		keys:      defaultKeyMap(),
		input:     ti,
		spinner:   sp,
		help:      help.New(),
		statusBar: statusBar,
		view:      config.Workflow.View(),
		tiles:     make(map[int]preview.Tile),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.ListenCmd(), textinput.Blink}
	if path := strings.TrimSpace(m.config.InitialPath); path != "" {
		cmds = append(cmds, m.selectCmd(path))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if m.quitting {
			return m, tea.Quit
		}
		if handled {
			return m, cmd
		}
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		cmds = append(cmds, inputCmd)

	case ViewMsg:
		cmds = append(cmds, m.bridge.ListenCmd())
		// The inbox preserves order, but a snapshot taken before a newer
		// one was applied must never roll the view back.
		if msg.View.Version < m.view.Version {
			m.logger.Debug("dropping stale view", "version", msg.View.Version, "current", m.view.Version)
			break
		}
		cmds = append(cmds, m.applyEvent(msg.Event)...)

	case BridgeClosedMsg:
		m.logger.Debug("bridge closed")

	case PathErrorMsg:
		m.alert = msg.Err.Error()
		m.logger.Warn("cannot select path", "path", msg.Path, "err", msg.Err)

	case FileHandledMsg:
		if msg.Err != nil {
			m.logger.Debug("selection finished", "err", msg.Err)
		}

	case SearchDoneMsg:
		if msg.Err != nil {
			m.logger.Debug("search finished", "err", msg.Err)
		}

	case TileLoadedMsg:
		if msg.RequestID != m.tileRequest {
			break
		}
		if msg.Tile.Err != nil {
			m.logger.Debug("tile unavailable", "path", msg.Tile.Path, "err", msg.Tile.Err)
		}
		m.tiles[msg.Index] = msg.Tile
		m.refreshContent(controller.SectionNone)

	case spinner.TickMsg:
		if m.view.Loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.statusBar.Spinner = m.spinner.View()
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes bound keys. It reports whether the key was consumed.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.cancel()
		return nil, true

	case key.Matches(msg, m.keys.Select):
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return nil, true
		}
		m.alert = ""
		return m.selectCmd(path), true

	case key.Matches(msg, m.keys.Search):
		// The projected view can lag behind a search started moments ago.
		if m.view.Loading || m.workflow.Busy() {
			return nil, true
		}
		m.alert = ""
		return m.searchCmd(), true

	case key.Matches(msg, m.keys.Clear):
		m.workflow.ClearUpload()
		m.alert = ""
		return nil, true

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height)
		return nil, true

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height)
		return nil, true
	}
	return nil, false
}

// applyEvent projects a controller snapshot onto the model.
func (m *Model) applyEvent(ev controller.Event) []tea.Cmd {
	var cmds []tea.Cmd
	prev := m.view
	m.view = ev.View
	if ev.Alert != "" {
		m.alert = ev.Alert
	}

	m.statusBar.Phase = m.view.Phase
	m.statusBar.RequestID = m.view.RequestID
	m.statusBar.Results = len(m.view.Results)
	m.statusBar.Selected = ""
	m.statusBar.SizeText = ""
	if m.view.Selected != nil {
		m.statusBar.Selected = m.view.Selected.Name
		m.statusBar.SizeText = m.view.Selected.SizeText()
	}

	// Every committed snapshot without a picker value comes from a reset.
	if m.view.PickerValue == "" && ev.View.Version > prev.Version {
		m.input.Reset()
	}

	if m.view.Loading && !prev.Loading {
		m.statusBar.Spinner = m.spinner.View()
		cmds = append(cmds, m.spinner.Tick)
	}

	switch {
	case !m.view.ResultsVisible:
		m.tiles = make(map[int]preview.Tile)
		m.tileRequest = 0
	case m.view.RequestID != m.tileRequest:
		m.tiles = make(map[int]preview.Tile)
		m.tileRequest = m.view.RequestID
		for i, res := range m.view.Results {
			cmds = append(cmds, m.loadTileCmd(m.tileRequest, i, res.Path))
		}
	}

	scroll := controller.SectionNone
	if ev.View.Version > prev.Version {
		scroll = m.view.ScrollTo
	}
	m.refreshContent(scroll)
	return cmds
}

// updateLayout recalculates component sizes after a resize.
func (m *Model) updateLayout() {
	bodyHeight := m.height - chromeHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = bodyHeight
	}
	m.input.Width = m.width - len(m.input.Prompt) - 1
	m.statusBar.Width = m.width
	m.help.Width = m.width
	m.refreshContent(controller.SectionNone)
}

// refreshContent re-renders the scrollable body and optionally brings a
// section into view.
func (m *Model) refreshContent(scroll controller.Section) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderBody())
	switch scroll {
	case controller.SectionPreview:
		m.viewport.GotoTop()
	case controller.SectionResults:
		m.viewport.SetYOffset(m.resultsOffset)
	}
}

// renderBody renders the preview and results panels and records where the
// results start.
func (m *Model) renderBody() string {
	var sections []string
	m.resultsOffset = 0

	if m.view.PreviewVisible && m.view.Preview != nil {
		p := renderPreview(m.renderer, m.styles, m.view.Preview)
		sections = append(sections, p)
		m.resultsOffset = lipgloss.Height(p) + 1
	}
	if m.view.ResultsVisible {
		if len(sections) > 0 {
			sections = append(sections, m.styles.Divider.Render(strings.Repeat("─", max(m.width, 1))))
		}
		sections = append(sections, renderResults(m.renderer, m.styles, m.view.Results, m.view.EmptyState, m.tiles, m.config.TileWidth, m.width))
	}
	if len(sections) == 0 {
		return m.styles.Muted.Render("Type the path of an image and press enter.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// View renders the full TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Title.Render("imgseek") + m.styles.ServerURL.Render(m.config.ServerURL)
	alert := ""
	if m.alert != "" {
		alert = m.styles.Alert.Render("! " + m.alert)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.InputStyle.Width(m.width).Render(m.input.View()),
		alert,
		m.viewport.View(),
		m.statusBar.View(),
		m.help.View(m.keys),
	)
}

// Alert returns the alert currently shown.
func (m Model) Alert() string { return m.alert }

// ViewModel returns the controller snapshot the model last applied.
func (m Model) ViewModel() controller.ViewModel { return m.view }

func (m Model) selectCmd(path string) tea.Cmd {
	ctx, w := m.ctx, m.workflow
	return func() tea.Msg {
		candidate, err := imagefile.FromPath(path)
		if err != nil {
			return PathErrorMsg{Path: path, Err: err}
		}
		return FileHandledMsg{Err: w.HandleFile(ctx, candidate)}
	}
}

func (m Model) searchCmd() tea.Cmd {
	ctx, w := m.ctx, m.workflow
	return func() tea.Msg {
		return SearchDoneMsg{Err: w.SearchSimilar(ctx)}
	}
}

func (m Model) loadTileCmd(requestID uint64, index int, path string) tea.Cmd {
	ctx, f, cols := m.ctx, m.config.Fetcher, m.config.TileWidth
	return func() tea.Msg {
		if f == nil {
			return TileLoadedMsg{RequestID: requestID, Index: index, Tile: preview.Tile{Path: path, Placeholder: true}}
		}
		return TileLoadedMsg{RequestID: requestID, Index: index, Tile: preview.LoadTile(ctx, f, path, cols)}
	}
}
