// Package transport performs single HTTP(S) fetches for the installer,
// honoring the resolved trust anchors, environment proxy settings, and gzip
// negotiation. All failures surface as *Error values so the caller owns
// user-facing messaging.
package transport

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/puli/installer/internal/truststore"
)

const (
	// UserAgent identifies the installer on every request.
	UserAgent = "Puli-Installer/1.0"
	// DefaultTimeout bounds a single fetch end to end.
	DefaultTimeout = 5 * time.Minute

	maxRedirects = 10
)

// Error describes a failed fetch. Detail carries low-level diagnostics
// captured along the way instead of being printed directly.
type Error struct {
	URL    string
	Reason string
	Detail []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Client fetches resources over HTTP(S) using a fixed trust configuration.
// The underlying http.Client is built lazily on first use.
type Client struct {
	trust   truststore.Config
	timeout time.Duration
	httpc   *http.Client
}

// NewClient creates a client bound to the given trust configuration. TLS
// verification pins the hostname of the first URL fetched; all installer
// endpoints live on the same host.
func NewClient(trust truststore.Config) *Client {
	return &Client{trust: trust, timeout: DefaultTimeout}
}

// Fetch retrieves the resource at rawURL and returns the decoded body bytes.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "invalid URL", Err: err}
	}

	if c.httpc == nil {
		httpc, err := c.buildHTTPClient(target)
		if err != nil {
			return nil, err
		}
		c.httpc = httpc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "create request", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Connection", "close")
	req.Header.Set("Accept-Encoding", "gzip")

	proxy, err := proxyFromEnvironment(target)
	if err != nil {
		return nil, err
	}
	if proxy != nil && proxy.authorization != "" {
		req.Header.Set("Proxy-Authorization", proxy.authorization)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		ferr := &Error{URL: rawURL, Reason: "request failed", Err: err}
		if proxy != nil && !proxy.fullURI {
			// Absolute-form request targets are always sent to HTTP proxies;
			// the disabled toggle could not be honored.
			ferr.Detail = append(ferr.Detail, "proxy full-URI toggle is disabled but absolute-form request targets were sent")
		}
		return nil, ferr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			URL:    rawURL,
			Reason: fmt.Sprintf("unexpected status %s", resp.Status),
			Detail: []string{fmt.Sprintf("status code %d", resp.StatusCode)},
		}
	}

	body := resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &Error{URL: rawURL, Reason: "decode gzip response", Err: err}
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "read response body", Err: err}
	}
	return data, nil
}

// buildHTTPClient assembles the http.Client for this run: TLS root pool from
// the trust configuration, environment proxy, capped redirects, and
// transport-level compression disabled so gzip handling stays explicit.
func (c *Client) buildHTTPClient(target *url.URL) (*http.Client, error) {
	tlsConfig, err := c.buildTLSConfig(target)
	if err != nil {
		return nil, err
	}

	proxy, err := proxyFromEnvironment(target)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		TLSClientConfig:    tlsConfig,
		DisableCompression: true,
	}
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy.url)
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}

func (c *Client) buildTLSConfig(target *url.URL) (*tls.Config, error) {
	if !c.trust.TLSEnabled {
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec // explicit --insecure opt-out
	}

	pool, detail, err := loadCertPool(c.trust)
	if err != nil {
		return nil, &Error{URL: target.String(), Reason: "load trust anchors", Detail: detail, Err: err}
	}

	return &tls.Config{
		RootCAs:    pool,
		ServerName: target.Hostname(),
		MinVersion: tls.VersionTLS12,
	}, nil
}

// loadCertPool builds the root pool from a single bundle file or from every
// certificate file in a trust anchor directory. The returned detail records
// entries that were skipped, for diagnostics.
func loadCertPool(trust truststore.Config) (*x509.CertPool, []string, error) {
	pool := x509.NewCertPool()
	var detail []string

	if !trust.IsDirectory {
		data, err := os.ReadFile(trust.CAPath)
		if err != nil {
			return nil, detail, fmt.Errorf("read CA bundle: %w", err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, detail, fmt.Errorf("no usable certificates in %s", trust.CAPath)
		}
		return pool, detail, nil
	}

	entries, err := os.ReadDir(trust.CAPath)
	if err != nil {
		return nil, detail, fmt.Errorf("read CA directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".pem" && ext != ".crt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(trust.CAPath, name))
		if err != nil {
			detail = append(detail, fmt.Sprintf("skipped %s: %v", name, err))
			continue
		}
		if !pool.AppendCertsFromPEM(data) {
			detail = append(detail, fmt.Sprintf("skipped %s: not certificate content", name))
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return nil, detail, fmt.Errorf("no usable certificates in %s", trust.CAPath)
	}
	return pool, detail, nil
}
