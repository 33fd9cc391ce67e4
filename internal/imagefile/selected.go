package imagefile

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxSize is the largest accepted file, 16 MiB.
const MaxSize int64 = 16 * 1024 * 1024

// AllowedExtensions lists the extensions the backend stores. Selection does
// not enforce them; they are shown as a hint.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp"}

// imagePattern mirrors an unanchored String.match("image.*").
var imagePattern = regexp.MustCompile(`image.*`)

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// Candidate is a file offered for selection, before validation.
// Open is only called once the candidate has passed validation.
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// SelectedImage is the file currently chosen for search.
type SelectedImage struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// SizeText formats the size as kibibytes with two decimals.
func (s *SelectedImage) SizeText() string {
	return FormatSize(s.Size)
}

// FormatSize renders a byte count the way the preview shows it, e.g. "12.50 KB".
func FormatSize(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}

// IsImageType reports whether a declared media type indicates an image.
func IsImageType(mediaType string) bool {
	return imagePattern.MatchString(mediaType)
}

// Validate checks the declared media type and size of a candidate.
func Validate(c Candidate) error {
	if !IsImageType(c.MediaType) {
		return &ValidationError{Name: c.Name, MediaType: c.MediaType, Size: c.Size, Err: ErrNotImage}
	}
	if c.Size > MaxSize {
		return &ValidationError{Name: c.Name, MediaType: c.MediaType, Size: c.Size, Err: ErrTooLarge}
	}
	return nil
}

// Read validates the candidate and loads its payload.
func Read(c Candidate) (*SelectedImage, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	if c.Open == nil {
		return nil, fmt.Errorf("%s: no content available", c.Name)
	}

	rc, err := c.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Name, err)
	}
	defer rc.Close()

	// Read one byte past the limit so a file that grew after stat is still caught.
	data, err := io.ReadAll(io.LimitReader(rc, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Name, err)
	}
	if int64(len(data)) > MaxSize {
		return nil, &ValidationError{Name: c.Name, MediaType: c.MediaType, Size: int64(len(data)), Err: ErrTooLarge}
	}

	return &SelectedImage{
		Name:      c.Name,
		MediaType: c.MediaType,
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

// FromPath builds a candidate for a file on disk. The media type comes from
// the extension, falling back to content sniffing.
func FromPath(path string) (Candidate, error) {
	path = expandHome(strings.TrimSpace(path))
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}

	mediaType, err := declaredType(path)
	if err != nil {
		return Candidate{}, err
	}

	return Candidate{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds a candidate from an in-memory payload.
func FromBytes(name, mediaType string, data []byte) Candidate {
	if mediaType == "" {
		mediaType = typeFor(name, data)
	}
	return Candidate{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func declaredType(path string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return http.DetectContentType(head[:n]), nil
}

func typeFor(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return http.DetectContentType(data)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
