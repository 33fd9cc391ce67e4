// Package preview turns image bytes into terminal-displayable thumbnails.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// halfBlock draws the top pixel as foreground and the bottom pixel as background.
const halfBlock = "▀"

// PlaceholderText is shown on tiles whose image could not be loaded.
const PlaceholderText = "image not found"

// Image is a decoded picture with its original dimensions.
type Image struct {
	Thumb  image.Image
	Width  int
	Height int
}

// Decode decodes image bytes, honouring EXIF orientation, and scales the
// result to fit within maxCols terminal columns.
func Decode(data []byte, maxCols int) (*Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	return &Image{
		Thumb:  Thumbnail(img, maxCols),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Thumbnail scales img so it is at most cols pixels wide and cols pixels
// tall. Each terminal cell holds two vertical pixels, so a square image
// renders as cols x cols/2 cells.
func Thumbnail(img image.Image, cols int) image.Image {
	if cols <= 0 {
		cols = 1
	}
	return imaging.Fit(img, cols, cols, imaging.Lanczos)
}

// Render draws img with half-block characters, one row of cells per two
// pixel rows.
func Render(r *lipgloss.Renderer, img image.Image) string {
	if img == nil {
		return ""
	}
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	bounds := img.Bounds()
	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top := hexColor(img.At(x, y))
			style := r.NewStyle().Foreground(lipgloss.Color(top))
			if y+1 < bounds.Max.Y {
				style = style.Background(lipgloss.Color(hexColor(img.At(x, y+1))))
			}
			sb.WriteString(style.Render(halfBlock))
		}
		if y+2 < bounds.Max.Y {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Placeholder draws a bordered box of the given outer size with text centred in it.
func Placeholder(r *lipgloss.Renderer, cols, rows int, text string) string {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if cols < 4 {
		cols = 4
	}
	if rows < 3 {
		rows = 3
	}
	return r.NewStyle().
		Width(cols-2).
		Height(rows-2).
		Align(lipgloss.Center, lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Foreground(lipgloss.Color("245")).
		Render(text)
}

func hexColor(c color.Color) string {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", nc.R, nc.G, nc.B)
}

// Fetcher downloads the bytes behind a result path.
type Fetcher interface {
	FetchImage(ctx context.Context, path string) ([]byte, error)
}

// Tile is a result thumbnail, or a placeholder when the image failed to load.
type Tile struct {
	Path        string
	Image       *Image
	Placeholder bool
	Err         error
}

// LoadTile fetches and decodes one result image. Failures never propagate;
// they produce a placeholder tile.
func LoadTile(ctx context.Context, f Fetcher, path string, cols int) Tile {
	data, err := f.FetchImage(ctx, path)
	if err != nil {
		return Tile{Path: path, Placeholder: true, Err: err}
	}
	img, err := Decode(data, cols)
	if err != nil {
		return Tile{Path: path, Placeholder: true, Err: err}
	}
	return Tile{Path: path, Image: img}
}

// View renders the tile at the given width in columns.
func (t Tile) View(r *lipgloss.Renderer, cols int) string {
	if t.Placeholder || t.Image == nil {
		return Placeholder(r, cols, cols/2, PlaceholderText)
	}
	return Render(r, t.Image.Thumb)
}
