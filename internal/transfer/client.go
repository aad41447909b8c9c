// Package transfer talks to the server's plain HTTP endpoints: downloads,
// inline views and uploads.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/metrics"
)

// ErrStatus marks a response with an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the failing status.
type StatusError struct {
	Op     string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrStatus, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Client wraps the HTTP endpoints of one server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := ParseServerURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     logger.With("component", "transfer"),
	}, nil
}

// ParseServerURL accepts "host:port", "http://host" or "ws://host" forms and
// returns the HTTP base URL.
func ParseServerURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("server url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws", "wss":
		u.Scheme = strings.Replace(u.Scheme, "ws", "http", 1)
		u.Path = strings.TrimSuffix(u.Path, "/connect")
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Base returns the server's HTTP base URL.
func (c *Client) Base() string {
	return c.base.String()
}

// ConnectURL returns the duplex endpoint URL.
func (c *Client) ConnectURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/connect"
	return u.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	return u.String()
}

// DownloadURL returns the attachment URL for one or more remote paths.
// Several paths are served as a single zip archive.
func (c *Client) DownloadURL(remotePaths ...string) string {
	normalized := make([]string, len(remotePaths))
	for i, p := range remotePaths {
		normalized[i] = listing.NormalizePath(p)
	}
	return c.endpoint("/download", url.Values{"file": {strings.Join(normalized, ",")}})
}

// ViewURL returns the inline rendering URL for a remote path.
func (c *Client) ViewURL(remotePath string) string {
	return c.endpoint("/download", url.Values{
		"file": {listing.NormalizePath(remotePath)},
		"view": {"1"},
	})
}

// Download streams one remote file into w.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	return c.fetch(ctx, "download", c.DownloadURL(remotePath), w, -1)
}

// DownloadMany streams a zip of several remote files into w.
func (c *Client) DownloadMany(ctx context.Context, remotePaths []string, w io.Writer) (int64, error) {
	if len(remotePaths) == 0 {
		return 0, errors.New("no files to download")
	}
	for _, p := range remotePaths {
		if strings.Contains(p, ",") {
			return 0, fmt.Errorf("cannot bundle %q: commas separate archive members", p)
		}
	}
	return c.fetch(ctx, "download", c.DownloadURL(remotePaths...), w, -1)
}

// View reads at most limit bytes of a remote file through the inline view
// endpoint.
func (c *Client) View(ctx context.Context, remotePath string, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.fetch(ctx, "view", c.ViewURL(remotePath), &buf, limit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Client) fetch(ctx context.Context, op, target string, w io.Writer, limit int64) (n int64, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordTransfer(op, n, time.Since(start), err == nil)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	if limit > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", limit-1))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	n, err = io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("%s: read body: %w", op, err)
	}
	c.logger.Debug("fetched", "op", op, "url", target, "bytes", n)
	return n, nil
}

// UploadFile is one file part of an upload.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// Upload posts files into the remote directory uploadDir. The server
// answers 200 on success.
func (c *Client) Upload(ctx context.Context, uploadDir string, files []UploadFile) (err error) {
	if len(files) == 0 {
		return errors.New("no files to upload")
	}

	var sent atomic.Int64
	start := time.Now()
	defer func() {
		c.metrics.RecordTransfer("upload", sent.Load(), time.Since(start), err == nil)
	}()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		werr := writeUploadBody(mw, uploadDir, files, &sent)
		if werr == nil {
			werr = mw.Close()
		}
		_ = pw.CloseWithError(werr)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload", nil), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("upload: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "upload", Code: resp.StatusCode, Status: resp.Status}
	}
	c.logger.Info("uploaded", "dir", uploadDir, "files", len(files), "bytes", sent.Load())
	return nil
}

func writeUploadBody(mw *multipart.Writer, uploadDir string, files []UploadFile, sent *atomic.Int64) error {
	for _, f := range files {
		part, err := mw.CreateFormFile("file", f.Name)
		if err != nil {
			return err
		}
		n, err := io.Copy(part, f.Reader)
		sent.Add(n)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return mw.WriteField("uploadDir", listing.NormalizePath(uploadDir))
}
