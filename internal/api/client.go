package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/types"
)

// DefaultTimeout bounds every request when the caller does not pick one.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a JSON response we are willing to buffer.
const maxBody = 8 << 20

var (
	// ErrUnavailable means the request never produced a response (network, timeout, cancellation).
	ErrUnavailable = errors.New("photo service unavailable")
	// ErrBadResponse means a response arrived but could not be understood.
	ErrBadResponse = errors.New("unexpected response from photo service")
	// ErrNotFound is returned by FetchPhoto for a missing file.
	ErrNotFound = errors.New("photo not found")
)

// Client talks to the face-detection / photo storage service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client with its own http.Client bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client on top of an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// DetectFaces posts an image data URL to /api/detect_faces.
// A non-empty Error field in the result is a server-reported failure, not a Go error.
func (c *Client) DetectFaces(ctx context.Context, image string) (*types.DetectResult, error) {
	var res types.DetectResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/detect_faces", types.ImageRequest{Image: image}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SavePhoto posts an image data URL to /api/save_photo.
func (c *Client) SavePhoto(ctx context.Context, image string) (*types.SaveResult, error) {
	var res types.SaveResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/save_photo", types.ImageRequest{Image: image}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListPhotos fetches every saved photo, newest first as ordered by the service.
func (c *Client) ListPhotos(ctx context.Context) ([]types.Photo, error) {
	var photos []types.Photo
	if err := c.doJSON(ctx, http.MethodGet, "/api/photos", nil, &photos); err != nil {
		return nil, err
	}
	if photos == nil {
		photos = []types.Photo{}
	}
	return photos, nil
}

// DeletePhoto issues DELETE /api/delete_photo/{id}.
func (c *Client) DeletePhoto(ctx context.Context, id int) (*types.MessageResult, error) {
	var res types.MessageResult
	if err := c.doJSON(ctx, http.MethodDelete, "/api/delete_photo/"+strconv.Itoa(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InitDatabase asks the service to create its tables.
func (c *Client) InitDatabase(ctx context.Context) (*types.MessageResult, error) {
	var res types.MessageResult
	if err := c.doJSON(ctx, http.MethodGet, "/init_db", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchPhoto streams /photos/{filename} into w and returns the number of bytes copied.
func (c *Client) FetchPhoto(ctx context.Context, filename string, w io.Writer) (int64, error) {
	path := "/photos/" + url.PathEscape(filename)
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, filename)
	case resp.StatusCode >= 400:
		return 0, fmt.Errorf("%w: GET %s returned status %d", ErrBadResponse, path, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, path, err)
	}
	return n, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("API", "%s %s failed after %v: %v", method, path, time.Since(start), err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	logger.Debug("API", "%s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

// doJSON decodes the body whatever the status code: the service reports
// failures as {"error": "..."} on 4xx/5xx and callers branch on that field.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %w", ErrUnavailable, method, path, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// A list endpoint answering with an error object still deserves its message.
		var errRes types.ErrorResult
		if json.Unmarshal(raw, &errRes) == nil && errRes.Error != "" {
			return fmt.Errorf("%w: %s %s: %s", ErrBadResponse, method, path, errRes.Error)
		}
		return fmt.Errorf("%w: %s %s returned status %d: %w", ErrBadResponse, method, path, resp.StatusCode, err)
	}
	return nil
}

// ServiceError is a failure the service reported in the "error" field of an otherwise valid response.
type ServiceError struct {
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service error: %s", e.Op, e.Message)
}
