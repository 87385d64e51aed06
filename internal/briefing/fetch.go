package briefing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"ai-meeting-copilot/internal/observability/metrics"
)

const (
	// fetchDeadline is one cumulative deadline across all redirects.
	fetchDeadline = 10 * time.Second
	maxRedirects  = 5
	maxBodyBytes  = 1 << 20 // 1MB read cap before stripping
	// maxSourceChars is the per-source text budget after markup stripping.
	maxSourceChars = 3000
)

// Fetch errors. Blocked fetches fail before any network call.
var (
	ErrSchemeBlocked = errors.New("url scheme not allowed")
	ErrHostBlocked   = errors.New("host is private, loopback, or link-local")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Fetcher retrieves briefing source URLs with SSRF defenses: http/https
// only, private and loopback hosts blocked before dialing, bounded
// redirects, one cumulative deadline.
type Fetcher struct {
	client  *http.Client
	metrics *metrics.Metrics
}

// NewFetcher creates a hardened fetcher.
func NewFetcher() *Fetcher {
	dialer := &net.Dialer{
		Timeout: fetchDeadline,
		// Re-check the resolved address at connect time; the preflight
		// check alone would miss DNS names resolving to internal IPs.
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || blockedIP(ip) {
				return ErrHostBlocked
			}
			return nil
		},
	}

	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:       dialer.DialContext,
				DisableKeepAlives: true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}
				return validateURL(req.URL)
			},
		},
		metrics: metrics.DefaultMetrics,
	}
}

// FetchText retrieves one source URL and returns its markup-stripped text,
// truncated to the per-source budget.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	if err := validateURL(u); err != nil {
		reason := "host"
		if errors.Is(err, ErrSchemeBlocked) {
			reason = "scheme"
		}
		f.metrics.FetchBlocked.WithLabelValues(reason).Inc()
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ai-meeting-copilot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.FetchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.metrics.FetchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.metrics.FetchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read %s: %w", u.Host, err)
	}

	f.metrics.FetchTotal.WithLabelValues("ok").Inc()
	return truncateRunes(stripMarkup(string(body)), maxSourceChars), nil
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// validateURL enforces scheme and host rules before any network activity.
func validateURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrSchemeBlocked, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrHostBlocked)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("%w: %s", ErrHostBlocked, host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrHostBlocked, host)
	}
	return nil
}

// blockedIP reports addresses that must never be fetched.
func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

// stripMarkup removes tags, script and style bodies, and collapses
// whitespace. Good enough for prompt context; this is not an HTML parser.
func stripMarkup(s string) string {
	var sb strings.Builder
	inTag := false
	skipDepth := 0
	lower := strings.ToLower(s)

	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '<':
			inTag = true
			rest := lower[i:]
			if strings.HasPrefix(rest, "<script") || strings.HasPrefix(rest, "<style") {
				skipDepth++
			} else if skipDepth > 0 && (strings.HasPrefix(rest, "</script") || strings.HasPrefix(rest, "</style")) {
				skipDepth--
			}
		case s[i] == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag && skipDepth == 0:
			sb.WriteByte(s[i])
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
