package controller

import (
	"fmt"

	"imgseek/internal/imagefile"
	"imgseek/internal/preview"
	"imgseek/internal/searchapi"
)

// Phase is the coarse state of the upload/search workflow.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseSelected
	PhaseLoading
	PhaseResults
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseSelected:
		return "selected"
	case PhaseLoading:
		return "loading"
	case PhaseResults:
		return "results"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Section names a panel the view should bring into view.
type Section int

const (
	SectionNone Section = iota
	SectionPreview
	SectionResults
)

// Empty-state copy shown when a search returns nothing.
const (
	EmptyTitle = "No similar images found"
	EmptyHint  = "Try another image"
)

// Preview describes the selected image as the view shows it.
type Preview struct {
	Name      string
	MediaType string
	SizeText  string
	// Image is nil when the payload could not be decoded.
	Image       *preview.Image
	DecodeError string
}

// ResultView is a search result with its display fields precomputed.
type ResultView struct {
	Rank              int
	Filename          string
	Path              string
	Distance          float64
	SimilarityPercent float64
	SimilarityText    string
	DistanceText      string
}

// SimilarityPercent converts a distance to the displayed percentage.
// The result is not clamped: distances outside [0, 10]
// produce values below 0 or above 100.
func SimilarityPercent(distance float64) float64 {
	return 100 - distance*10
}

// NewResultView builds the display form of one result. rank is 1-based.
func NewResultView(rank int, r searchapi.SearchResult) ResultView {
	pct := SimilarityPercent(r.Distance)
	return ResultView{
		Rank:              rank,
		Filename:          r.Filename,
		Path:              r.Path,
		Distance:          r.Distance,
		SimilarityPercent: pct,
		SimilarityText:    fmt.Sprintf("%.1f%%", pct),
		DistanceText:      fmt.Sprintf("%.4f", r.Distance),
	}
}

// ViewModel is an immutable snapshot of everything a renderer needs.
type ViewModel struct {
	// Version increases with every state change; renderers drop older snapshots.
	Version uint64
	Phase   Phase

	Selected       *imagefile.SelectedImage
	PickerValue    string
	Preview        *Preview
	PreviewVisible bool

	Loading   bool
	RequestID uint64

	Results        []ResultView
	ResultsVisible bool
	EmptyState     bool

	Error    string
	ScrollTo Section
}

// HasSelection reports whether an image is selected.
func (v ViewModel) HasSelection() bool {
	return v.Selected != nil
}

// Event is delivered to subscribers after every state change. Alert is set
// when the user must be told something (validation failures, errors).
type Event struct {
	View  ViewModel
	Alert string
}
