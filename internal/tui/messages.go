package tui

import (
	"imgseek/internal/controller"
	"imgseek/internal/preview"
)

// BubbleTea message types produced by the controller bridge and commands

// ViewMsg carries a controller snapshot, plus an alert when one was raised.
type ViewMsg struct {
	controller.Event
}

// BridgeClosedMsg signals that the bridge stopped forwarding events.
type BridgeClosedMsg struct{}

// PathErrorMsg reports a path that could not be turned into a candidate
// (missing file, directory, unreadable).
type PathErrorMsg struct {
	Path string
	Err  error
}

// FileHandledMsg is returned once HandleFile finished. Validation failures
// have already been alerted through the bridge.
type FileHandledMsg struct {
	Err error
}

// SearchDoneMsg is returned once SearchSimilar finished.
type SearchDoneMsg struct {
	Err error
}

// TileLoadedMsg delivers one result thumbnail for the search that
// produced RequestID.
type TileLoadedMsg struct {
	RequestID uint64
	Index     int
	Tile      preview.Tile
}
