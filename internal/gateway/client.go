package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resumeup/internal/config"
	"resumeup/internal/logging"
	"resumeup/internal/services"
)

// HTTPDoer captures the subset of http.Client the gateway needs, so tests can
// substitute transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProgressFunc receives byte counts while an artifact streams down. Total is
// -1 when the backend omits Content-Length.
type ProgressFunc func(written, total int64)

// Client talks to the resume processing backend.
type Client struct {
	baseURL        string
	client         HTTPDoer
	uploadTimeout  time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient builds a backend client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.Backend.BaseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "new", "backend base URL required", nil)
	}

	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         &http.Client{},
		uploadTimeout:  cfg.UploadTimeout(),
		requestTimeout: cfg.RequestTimeout(),
		logger:         logging.NewComponentLogger(logger, "gateway"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Templates fetches the improvement templates the backend offers. Relative
// preview URLs are resolved against the backend root.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/templates", nil)
	if err != nil {
		return nil, fmt.Errorf("build templates request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify("templates", "fetch templates", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransport, "gateway", "templates",
			fmt.Sprintf("backend returned %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify("templates", "read response", err)
	}

	// The backend wraps the list in an object; older deployments returned a
	// bare array. Accept both.
	var envelope templatesEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		if arrErr := json.Unmarshal(data, &envelope.Templates); arrErr != nil {
			return nil, services.Wrap(services.ErrTransport, "gateway", "templates", "decode response", err)
		}
	}

	templates := envelope.Templates
	for i := range templates {
		templates[i].PreviewURL = c.resolveURL(templates[i].PreviewURL)
	}
	return templates, nil
}

// Upload sends a resume file and template choice to the backend and blocks
// until processing finishes. The deadline is the long upload timeout; the
// backend performs the whole improvement inline with this request.
func (c *Client) Upload(ctx context.Context, filePath, templateID string) (*UploadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "gateway", "upload", "open resume file", err)
	}
	defer file.Close()

	body, contentType, err := buildUploadBody(file, filepath.Base(filePath), templateID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-resume", body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	requestStart := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, c.classify("upload", "upload resume", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp.Body)
		c.logger.Warn("upload rejected",
			logging.Int("status", resp.StatusCode),
			logging.Duration("latency", latency),
			logging.String("detail", detail),
		)
		return nil, services.Wrap(services.ErrTransport, "gateway", "upload",
			fmt.Sprintf("backend returned %d: %s", resp.StatusCode, detail), nil)
	}

	var envelope uploadEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, services.Wrap(services.ErrTransport, "gateway", "upload", "decode response", err)
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, services.Wrap(services.ErrTransport, "gateway", "upload", "backend response missing file id", nil)
	}

	improved, ok := decodeImprovedData(envelope.ImprovedData)
	if !ok {
		c.logger.Warn("unrecognized improved_data shape; keeping empty text",
			logging.String("file_id", envelope.ID),
		)
	}

	result := &UploadResult{
		ID:           envelope.ID,
		OriginalText: envelope.OriginalText,
		ImprovedText: improved,
		DownloadURL:  c.resolveURL(envelope.DownloadURL),
	}
	if result.DownloadURL == "" {
		result.DownloadURL = c.DownloadURL(envelope.ID)
	}

	c.logger.Info("upload completed",
		logging.String("file_id", result.ID),
		logging.Duration("latency", latency),
	)
	return result, nil
}

// Progress fetches a best-effort progress report for a job. Errors degrade to
// a generic report rather than failing the caller.
func (c *Client) Progress(ctx context.Context, id string) ProgressReport {
	generic := ProgressReport{Stage: "processing", Message: "Processing..."}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/progress/"+url.PathEscape(id), nil)
	if err != nil {
		return generic
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return generic
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return generic
	}
	var report ProgressReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return generic
	}
	if report.Message == "" {
		report.Message = generic.Message
	}
	return report
}

// ArtifactReady reports whether the artifact behind the handle can be fetched
// right now. It issues a HEAD so no bytes move.
func (c *Client) ArtifactReady(ctx context.Context, handle string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.resolveURL(handle), nil)
	if err != nil {
		return false, fmt.Errorf("build readiness request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, c.classify("ready", "check artifact", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusMethodNotAllowed:
		// Backend without HEAD support; assume ready and let the GET decide.
		return true, nil
	default:
		return false, services.Wrap(services.ErrTransport, "gateway", "ready",
			fmt.Sprintf("backend returned %d", resp.StatusCode), nil)
	}
}

// Download streams the artifact behind the handle into w, reporting byte
// progress along the way. The handle may be absolute or relative to the
// backend root.
func (c *Client) Download(ctx context.Context, handle string, w io.Writer, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(handle), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, c.classify("download", "fetch artifact", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, services.Wrap(services.ErrNotFound, "gateway", "download", "artifact not available", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrTransport, "gateway", "download",
			fmt.Sprintf("backend returned %d", resp.StatusCode), nil)
	}

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf("write artifact: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, c.classify("download", "stream artifact", readErr)
		}
	}

	if total >= 0 && written != total {
		return written, services.Wrap(services.ErrTransport, "gateway", "download",
			fmt.Sprintf("truncated artifact: %d of %d bytes", written, total), nil)
	}
	return written, nil
}

// TemplatePreview streams the preview image for a template into w.
func (c *Client) TemplatePreview(ctx context.Context, templateID string, w io.Writer) (int64, error) {
	return c.Download(ctx, c.TemplatePreviewURL(templateID), w, nil)
}

// DownloadURL returns the absolute retrieval handle for a processed resume.
func (c *Client) DownloadURL(id string) string {
	return c.baseURL + "/download/" + url.PathEscape(id)
}

// TemplatePreviewURL returns the absolute preview handle for a template.
func (c *Client) TemplatePreviewURL(templateID string) string {
	return c.baseURL + "/template-preview/" + url.PathEscape(templateID)
}

func (c *Client) resolveURL(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	if !strings.HasPrefix(handle, "/") {
		handle = "/" + handle
	}
	return c.baseURL + handle
}

// classify maps transport-level failures onto the shared sentinels so callers
// can branch without touching net/http internals.
func (c *Client) classify(operation, message string, err error) error {
	marker := services.ErrTransport
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "gateway", operation, message, err)
}

func buildUploadBody(file io.Reader, filename, templateID string) (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy resume into request: %w", err)
	}
	if templateID != "" {
		if err := writer.WriteField("template_id", templateID); err != nil {
			return nil, "", fmt.Errorf("write template field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
