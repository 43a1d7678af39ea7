package report

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
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the rendering request exceeded the configured timeout.
	ErrTimeout = errors.New("report: gotenberg timeout")
	// ErrInvalidResponse indicates Gotenberg returned a non-success status code.
	ErrInvalidResponse = errors.New("report: gotenberg invalid response")
	// ErrTooSmall indicates the generated PDF was below the minimum expected size.
	ErrTooSmall = errors.New("report: pdf below minimum size")
)

const (
	defaultTimeout = 30 * time.Second
	defaultMinSize = 512

	convertRoute = "/forms/chromium/convert/html"
	mergeRoute   = "/forms/pdfengines/merge"
)

// Options tunes the client. A zero Timeout or MinSize selects the default.
type Options struct {
	Timeout time.Duration
	Retries int
	MinSize int
}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	timeout    time.Duration
	minSize    int
}

// NewClient constructs a new client.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.MinSize <= 0 {
		opts.MinSize = defaultMinSize
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		retries:    opts.Retries,
		timeout:    opts.Timeout,
		minSize:    opts.MinSize,
	}
}

// Page is one conversion request. Sizes are in inches, as Gotenberg expects.
type Page struct {
	HTML       string
	HeaderHTML string
	FooterHTML string
	Title      string

	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	Landscape    bool

	UserPassword  string
	OwnerPassword string
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ne := classifyNetError(err); ne != nil {
			return ne
		}
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document with Chromium defaults.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return c.Convert(ctx, Page{HTML: html})
}

// Convert renders a page through the Chromium HTML route, retrying server
// errors, network timeouts and truncated output.
func (c *Client) Convert(ctx context.Context, page Page) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("report: client not initialised")
	}
	payload, contentType, err := encodePage(page)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "convert", convertRoute, payload, contentType)
}

// Merge joins PDFs in order through the PDF engines route. A non-empty
// password encrypts the result.
func (c *Client) Merge(ctx context.Context, files [][]byte, password string) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("report: client not initialised")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("report: nothing to merge")
	}
	payload, contentType, err := encodeMerge(files, password)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "merge", mergeRoute, payload, contentType)
}

func (c *Client) send(ctx context.Context, op, route string, payload []byte, contentType string) ([]byte, error) {
	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, retry, err := c.post(ctx, route, payload, contentType)
		if err == nil {
			return data, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("report: %s failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) post(ctx context.Context, route string, payload []byte, contentType string) ([]byte, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ne := classifyNetError(err); ne != nil {
			return nil, true, ne
		}
		return nil, true, err
	}
	data, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, false, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if readErr != nil {
		return nil, true, readErr
	}
	if len(data) < c.minSize {
		return nil, true, ErrTooSmall
	}
	return data, false, nil
}

func encodePage(page Page) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	files := []struct{ name, content string }{
		{"index.html", page.HTML},
		{"header.html", page.HeaderHTML},
		{"footer.html", page.FooterHTML},
	}
	for _, f := range files {
		if f.name != "index.html" && f.content == "" {
			continue
		}
		part, err := writer.CreateFormFile("files", f.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			return nil, "", err
		}
	}

	fields := map[string]string{"printBackground": "true"}
	setInches := func(name string, v float64) {
		if v > 0 {
			fields[name] = strconv.FormatFloat(v, 'f', 4, 64)
		}
	}
	setInches("paperWidth", page.PaperWidth)
	setInches("paperHeight", page.PaperHeight)
	setInches("marginTop", page.MarginTop)
	setInches("marginBottom", page.MarginBottom)
	setInches("marginLeft", page.MarginLeft)
	setInches("marginRight", page.MarginRight)
	if page.Landscape {
		fields["landscape"] = "true"
	}
	if page.UserPassword != "" {
		fields["userPassword"] = page.UserPassword
		owner := page.OwnerPassword
		if owner == "" {
			owner = page.UserPassword
		}
		fields["ownerPassword"] = owner
	}
	if page.Title != "" {
		meta, err := json.Marshal(map[string]string{"Title": page.Title})
		if err != nil {
			return nil, "", err
		}
		fields["metadata"] = string(meta)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// encodeMerge names the parts so Gotenberg's alphabetical merge order is the
// slice order.
func encodeMerge(files [][]byte, password string) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i, data := range files {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("%04d.pdf", i+1))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if password != "" {
		for _, name := range []string{"userPassword", "ownerPassword"} {
			if err := writer.WriteField(name, password); err != nil {
				return nil, "", err
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return nil
}
