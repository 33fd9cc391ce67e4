package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"imgseek/internal/controller"
	"imgseek/internal/preview"
)

// tileLoadingText is shown on a result tile while its image is being fetched.
const tileLoadingText = "loading"

// renderPreview renders the selected image with its name and size.
func renderPreview(r *lipgloss.Renderer, st Styles, p *controller.Preview) string {
	var b strings.Builder
	b.WriteString(st.PanelTitle.Render("Preview"))
	b.WriteString("\n")

	switch {
	case p.Image != nil:
		b.WriteString(preview.Render(r, p.Image.Thumb))
	default:
		b.WriteString(preview.Placeholder(r, controller.DefaultPreviewCols, controller.DefaultPreviewCols/2, "no preview"))
	}
	b.WriteString("\n")
	b.WriteString(st.Bold.Render(p.Name))
	b.WriteString("  ")
	b.WriteString(st.Muted.Render(p.SizeText))
	if p.DecodeError != "" {
		b.WriteString("\n")
		b.WriteString(st.Muted.Render(p.DecodeError))
	}
	return st.Panel.Render(b.String())
}

// renderResults renders the result tiles in rows that fit width, or the
// empty-state message.
func renderResults(r *lipgloss.Renderer, st Styles, results []controller.ResultView, empty bool, tiles map[int]preview.Tile, tileWidth, width int) string {
	var b strings.Builder
	b.WriteString(st.PanelTitle.Render("Similar images"))
	b.WriteString("\n")

	if empty || len(results) == 0 {
		b.WriteString(st.EmptyTitle.Render(controller.EmptyTitle))
		b.WriteString("\n")
		b.WriteString(st.EmptyHint.Render(controller.EmptyHint))
		return st.Panel.Render(b.String())
	}

	cardWidth := tileWidth + 2
	perRow := 1
	if width > cardWidth {
		perRow = width / cardWidth
	}

	var rows []string
	for start := 0; start < len(results); start += perRow {
		end := start + perRow
		if end > len(results) {
			end = len(results)
		}
		cards := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cards = append(cards, renderCard(r, st, results[i], tiles, i, tileWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return st.Panel.Render(b.String())
}

func renderCard(r *lipgloss.Renderer, st Styles, res controller.ResultView, tiles map[int]preview.Tile, index, tileWidth int) string {
	var img string
	if tile, ok := tiles[index]; ok {
		img = tile.View(r, tileWidth)
	} else {
		img = preview.Placeholder(r, tileWidth, tileWidth/2, tileLoadingText)
	}

	rank := fmt.Sprintf("#%d ", res.Rank)
	name := ansi.Truncate(res.Filename, tileWidth-ansi.StringWidth(rank), "...")

	lines := []string{
		img,
		st.Rank.Render(rank) + st.Filename.Render(name),
		"Similarity: " + st.similarityStyle(res.SimilarityPercent).Render(res.SimilarityText),
		st.Muted.Render("Distance: " + res.DistanceText),
	}
	return r.NewStyle().
		Width(tileWidth + 2).
		PaddingRight(2).
		Render(strings.Join(lines, "\n"))
}
