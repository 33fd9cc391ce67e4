package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"imgseek/internal/version"
)

// maxResponseBytes bounds JSON envelopes; tiles use maxTileBytes.
const (
	maxResponseBytes = 4 << 20
	maxTileBytes     = 32 << 20
)

// Config configures the backend client
type Config struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:5000",
		Timeout: 60 * time.Second,
	}
}

// Client talks to the image similarity backend over HTTP.
type Client struct {
	config     Config
	base       *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a backend client. A nil logger uses the default logger.
func NewClient(config Config, logger *log.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", config.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", config.BaseURL)
	}

	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		config: config,
		base:   base,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.WithPrefix("searchapi"),
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Upload sends the image as multipart field "file" and returns the
// server-assigned filename token.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*UploadResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, &UploadError{Message: err.Error(), Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &UploadError{Message: err.Error(), Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadError{Message: err.Error(), Err: err}
	}

	c.logger.Debug("uploading image", "file", name, "bytes", len(data))

	var envelope UploadResponse
	status, err := c.doJSON(ctx, http.MethodPost, "upload", writer.FormDataContentType(), body, &envelope)
	if err != nil {
		return nil, &UploadError{Message: err.Error(), StatusCode: status, Err: err}
	}

	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = FallbackUploadMessage
		}
		return nil, &UploadError{Message: msg, StatusCode: status, Err: ErrRejected}
	}
	if envelope.Filename == "" {
		err := malformed(status, errors.New("missing filename"))
		return nil, &UploadError{Message: err.Error(), StatusCode: status, Err: err}
	}

	c.logger.Debug("upload accepted", "file", name, "token", envelope.Filename)
	return &envelope, nil
}

// searchEnvelope distinguishes a missing results array from an empty one.
type searchEnvelope struct {
	Success bool            `json:"success"`
	Results *[]SearchResult `json:"results"`
	Count   int             `json:"count"`
	Error   string          `json:"error"`
}

// Search asks for the k nearest neighbours of a previously uploaded file.
func (c *Client) Search(ctx context.Context, filename string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	payload, err := json.Marshal(SearchRequest{Filename: filename, K: k})
	if err != nil {
		return nil, &SearchError{Message: err.Error(), Err: err}
	}

	c.logger.Debug("searching", "token", filename, "k", k)

	var envelope searchEnvelope
	status, err := c.doJSON(ctx, http.MethodPost, "search", "application/json", bytes.NewReader(payload), &envelope)
	if err != nil {
		return nil, &SearchError{Message: err.Error(), StatusCode: status, Err: err}
	}

	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = FallbackSearchMessage
		}
		return nil, &SearchError{Message: msg, StatusCode: status, Err: ErrRejected}
	}
	if envelope.Results == nil {
		err := malformed(status, errors.New("missing results"))
		return nil, &SearchError{Message: err.Error(), StatusCode: status, Err: err}
	}

	results := *envelope.Results
	c.logger.Debug("search complete", "token", filename, "results", len(results))
	return results, nil
}

// History returns the backend's most recent uploads.
func (c *Client) History(ctx context.Context) ([]UploadRecord, error) {
	var records []UploadRecord
	if _, err := c.doJSON(ctx, http.MethodGet, "api/history", "", nil, &records); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return records, nil
}

// ResolvePath turns a result path into an absolute URL. Relative paths are
// resolved against the server URL, the same way a browser resolves <img src>.
func (c *Client) ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// FetchImage downloads the resource behind a result path.
func (c *Client) FetchImage(ctx context.Context, path string) ([]byte, error) {
	target, err := c.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return data, nil
}

// doJSON performs a request and decodes the JSON body into out regardless of
// status code; the backend reports failures inside the envelope.
func (c *Client) doJSON(ctx context.Context, method, endpoint, contentType string, body io.Reader, out interface{}) (int, error) {
	ref, _ := url.Parse(endpoint)
	target := c.base.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, fmt.Errorf("%w: %w", ErrTransport, context.DeadlineExceeded)
		}
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("undecodable response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(data))
		return resp.StatusCode, malformed(resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
