package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"musicbridge/internal/model"
	"musicbridge/pkg/logger"
	"musicbridge/pkg/validator"

	"go.uber.org/zap"
)

// DefaultFilename is used when the backend does not name the file
const DefaultFilename = "downloaded_file"

// ErrInFlight is returned by Submit while another submission is pending
var ErrInFlight = errors.New("download already in progress")

// Options configures a Controller
type Options struct {
	// Endpoint is the backend download URL, e.g. http://localhost:5000/download
	Endpoint string
	// OutputPath is sent to the backend as output_path
	OutputPath string
	// TempDir holds the transient blob; empty uses os.TempDir()
	TempDir string
	// HTTPClient defaults to a client without timeout
	HTTPClient *http.Client
	Saver      Saver
	Logger     *zap.Logger
}

// Controller owns the lifecycle of download submissions. At most one
// submission is in flight at a time.
type Controller struct {
	endpoint   string
	outputPath string
	tempDir    string
	httpClient *http.Client
	saver      Saver
	log        *zap.Logger

	mu       sync.RWMutex
	status   model.RequestStatus
	onChange func(model.RequestStatus)
}

// New creates a Controller
func New(opts Options) (*Controller, error) {
	if !validator.IsHTTPURL(opts.Endpoint) {
		return nil, fmt.Errorf("invalid download endpoint %q", opts.Endpoint)
	}
	if opts.Saver == nil {
		return nil, errors.New("saver is required")
	}
	c := &Controller{
		endpoint:   opts.Endpoint,
		outputPath: opts.OutputPath,
		tempDir:    opts.TempDir,
		httpClient: opts.HTTPClient,
		saver:      opts.Saver,
		log:        opts.Logger,
		status:     model.Idle(),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.log == nil {
		c.log = logger.Named("client")
	}
	return c, nil
}

// SetUpdateCallback sets a function called after every status transition.
// It runs on the submitting goroutine and must not call Submit.
func (c *Controller) SetUpdateCallback(fn func(model.RequestStatus)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Status returns the current status
func (c *Controller) Status() model.RequestStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Submit sends form to the backend and blocks until the submission reaches
// a terminal status, which it returns. While another submission is in
// flight it returns ErrInFlight without sending anything.
func (c *Controller) Submit(ctx context.Context, form model.FormState) (model.RequestStatus, error) {
	if !c.begin() {
		return c.Status(), ErrInFlight
	}

	final := model.Failed(TransportMessage)
	defer func() { c.set(final) }()

	final = c.run(ctx, form)
	return final, nil
}

// begin moves the controller to InFlight unless it is already there
func (c *Controller) begin() bool {
	c.mu.Lock()
	if c.status.IsActive() {
		c.mu.Unlock()
		return false
	}
	c.status = model.InFlight()
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(model.InFlight())
	}
	return true
}

func (c *Controller) set(s model.RequestStatus) {
	c.mu.Lock()
	c.status = s
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

func (c *Controller) run(ctx context.Context, form model.FormState) model.RequestStatus {
	body, err := json.Marshal(model.DownloadRequest{
		URL:        form.URL,
		OutputPath: c.outputPath,
		Quality:    string(form.Quality),
		Type:       string(form.Mode),
	})
	if err != nil {
		c.log.Error("Failed to encode download request", zap.Error(err))
		return model.Failed(TransportMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error("Failed to create download request", zap.Error(err))
		return model.Failed(TransportMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("Submitting download",
		zap.String("url", form.URL),
		zap.String("type", string(form.Mode)),
		zap.String("quality", string(form.Quality)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Download request failed", zap.Error(err), zap.String("endpoint", c.endpoint))
		return model.Failed(TransportMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	savedPath, err := c.save(resp)
	if err != nil {
		c.log.Error("Failed to save download", zap.Error(err))
		return model.Failed(TransportMessage)
	}

	c.log.Info("Download saved", zap.String("path", savedPath))
	return model.Succeeded(savedPath)
}

type errorBody struct {
	Message *string `json:"message"`
}

func (c *Controller) handleErrorResponse(resp *http.Response) model.RequestStatus {
	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		c.log.Error("Unreadable error response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return model.Failed(TransportMessage)
	}

	serverMessage := ""
	if eb.Message != nil {
		serverMessage = *eb.Message
	}
	c.log.Warn("Backend rejected download",
		zap.Int("status", resp.StatusCode),
		zap.String("message", serverMessage))

	return model.Failed(SurfaceMessage(serverMessage))
}

// save buffers the body into a transient file, hands it to the saver and
// removes the transient file on every path.
func (c *Controller) save(resp *http.Response) (string, error) {
	blob, err := os.CreateTemp(c.tempDir, "musicbridge-*.part")
	if err != nil {
		return "", fmt.Errorf("create transient file: %w", err)
	}
	defer func() {
		blob.Close()
		if err := os.Remove(blob.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("Failed to release transient file", zap.String("path", blob.Name()), zap.Error(err))
		}
	}()

	n, err := io.Copy(blob, resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if _, err := blob.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind transient file: %w", err)
	}

	name := filenameFromResponse(resp)
	c.log.Debug("Received file", zap.String("filename", name), zap.Int64("size_bytes", n))

	return c.saver.Save(name, blob)
}

// filenameFromResponse extracts the file name from Content-Disposition.
// mime.ParseMediaType decodes RFC 5987 filename* values into "filename".
func filenameFromResponse(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return DefaultFilename
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return DefaultFilename
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == "/" {
		return DefaultFilename
	}
	return name
}
