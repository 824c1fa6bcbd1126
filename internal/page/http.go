package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies the tool on outgoing requests.
const DefaultUserAgent = "contactharvest/1.0 (+https://github.com/hyperifyio/contactharvest)"

// maxBody caps the size of a fetched page.
const maxBody = 16 << 20

var errServer = errors.New("server error")

// HTTP fetches a server-rendered page with timeouts and limited retry on
// transient errors.
type HTTP struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
	// Cookie is sent verbatim; listing sites usually require a session.
	Cookie string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
}

// NewHTTPClient returns an HTTP client with bounded dial and handshake
// timeouts.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (h *HTTP) client() *http.Client {
	base := h.HTTPClient
	if base == nil {
		base = NewHTTPClient()
	}
	// Clone to attach our redirect policy without mutating caller's client
	c := *base
	c.CheckRedirect = h.checkRedirect
	return &c
}

func (h *HTTP) Fetch(ctx context.Context) (Page, error) {
	if strings.TrimSpace(h.URL) == "" {
		return Page{}, ErrNoActivePage
	}
	attempts := h.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	c := h.client()
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, err := h.tryOnce(ctx, c)
		if err == nil {
			return Page{URL: h.URL, HTML: body}, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		select {
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	return Page{}, lastErr
}

func (h *HTTP) tryOnce(ctx context.Context, c *http.Client) ([]byte, error) {
	if h.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", h.URL)
	}
	ua := h.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if h.Cookie != "" {
		req.Header.Set("Cookie", h.Cookie)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return nil, fmt.Errorf("%w: %d", errServer, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !isHTMLContentType(ct) {
		return nil, fmt.Errorf("unsupported content type: %s", ct)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

func isTransient(err error) bool {
	return errors.Is(err, errServer) || errors.Is(err, context.DeadlineExceeded)
}

func (h *HTTP) checkRedirect(req *http.Request, via []*http.Request) error {
	max := h.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return errors.New("too many redirects")
	}
	if !isHTTPScheme(req.URL) {
		return errors.New("redirect to unsupported scheme")
	}
	return nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
