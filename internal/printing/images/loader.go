// Package images fetches remote images and inlines them as data URIs. The
// HTML converter renders page headers without network access, so logos must
// travel inside the markup.
package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultMaxBytes = 2 << 20
	defaultTTL      = time.Hour
)

var (
	// ErrUnsupported is returned for sources that are not http(s) URLs.
	ErrUnsupported = errors.New("images: unsupported source")
	// ErrTooLarge is returned when an image exceeds the size limit.
	ErrTooLarge = errors.New("images: image too large")
	// ErrNotImage is returned when the response is not an image.
	ErrNotImage = errors.New("images: not an image")
)

// Options tune a Loader. Zero values use the defaults.
type Options struct {
	// BaseURL resolves relative sources such as "/files/logo.png".
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int64
	// TTL is how long a fetched image, or a failure, is remembered.
	TTL    time.Duration
	Client *http.Client
}

type entry struct {
	uri     string
	expires time.Time
}

// Loader implements blocks.ImageLoader over HTTP with an in-process cache.
type Loader struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry
}

// NewLoader builds a loader. An invalid BaseURL leaves relative sources
// unresolved.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		client:   opts.Client,
		maxBytes: opts.MaxBytes,
		ttl:      opts.TTL,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
	if l.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		l.client = &http.Client{Timeout: timeout}
	}
	if l.maxBytes <= 0 {
		l.maxBytes = defaultMaxBytes
	}
	if l.ttl <= 0 {
		l.ttl = defaultTTL
	}
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			logger.Warn("invalid image base url", slog.String("base_url", opts.BaseURL), slog.Any("error", err))
		} else {
			l.base = base
		}
	}
	return l
}

// Inline returns src as a data URI, or "" when it cannot be loaded. Data URIs
// pass through unchanged.
func (l *Loader) Inline(ctx context.Context, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "data:") {
		if strings.HasPrefix(src, "data:image/") {
			return src
		}
		return ""
	}
	target, err := l.resolve(src)
	if err != nil {
		l.logger.Warn("logo skipped", slog.String("src", src), slog.Any("error", err))
		return ""
	}
	if uri, ok := l.cached(target); ok {
		return uri
	}
	v, _, _ := l.group.Do(target, func() (any, error) {
		uri, err := l.fetch(context.WithoutCancel(ctx), target)
		if err != nil {
			l.logger.Warn("logo fetch failed", slog.String("src", target), slog.Any("error", err))
		}
		l.store(target, uri)
		return uri, nil
	})
	return v.(string)
}

func (l *Loader) resolve(src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if !u.IsAbs() && l.base != nil {
		u = l.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, src)
	}
	return u.String(), nil
}

func (l *Loader) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("images: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > l.maxBytes {
		return "", ErrTooLarge
	}
	ctype, err := contentType(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// contentType trusts the sniffed type first. SVG is not sniffed, so the
// declared type is the fallback.
func contentType(data []byte, declared string) (string, error) {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}
	if media, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(media, "image/") {
		return media, nil
	}
	return "", ErrNotImage
}

func (l *Loader) cached(target string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[target]
	if !ok || l.now().After(e.expires) {
		return "", false
	}
	return e.uri, true
}

func (l *Loader) store(target, uri string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, e := range l.entries {
		if now.After(e.expires) {
			delete(l.entries, k)
		}
	}
	l.entries[target] = entry{uri: uri, expires: now.Add(l.ttl)}
}
