package transport

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

// ConfigError indicates a proxy misconfiguration. It is fatal and never
// retried, unlike transient *Error failures.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("proxy configuration: %s", e.Reason)
}

// Proxy environment variables consumed by the installer. The FULLURI
// toggles mirror the conventional proxy full-URI request switches; net/http
// always sends absolute-form request targets to HTTP proxies, so a disabled
// toggle cannot change the wire format and is only surfaced in failure
// detail.
const (
	proxyEnvVar        = "HTTP_PROXY"
	httpsProxyEnvVar   = "HTTPS_PROXY"
	fullURIEnvVar      = "HTTP_PROXY_REQUEST_FULLURI"
	httpsFullURIEnvVar = "HTTPS_PROXY_REQUEST_FULLURI"
)

type proxySettings struct {
	url           *url.URL
	authorization string
	fullURI       bool
}

// proxyFromEnvironment resolves the proxy for the given target URL. TLS
// targets consult HTTPS_PROXY before HTTP_PROXY; lowercase spellings of
// each are honored. It returns nil when no proxy is configured. The proxy
// URL is normalized: a missing scheme defaults to http, and a missing port
// defaults to 80 or 443 depending on the proxy scheme.
func proxyFromEnvironment(target *url.URL) (*proxySettings, error) {
	raw := proxyEnvValue(target)
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid proxy URL %q: %v", raw, err)}
	}

	switch proxyURL.Scheme {
	case "http", "https":
	case "tcp":
		proxyURL.Scheme = "http"
	case "ssl":
		proxyURL.Scheme = "https"
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported proxy scheme %q", proxyURL.Scheme)}
	}

	if proxyURL.Port() == "" {
		port := "80"
		if proxyURL.Scheme == "https" {
			port = "443"
		}
		proxyURL.Host = net.JoinHostPort(proxyURL.Hostname(), port)
	}

	settings := &proxySettings{url: proxyURL, fullURI: requestFullURI(target)}

	if user := proxyURL.User; user != nil {
		password, _ := user.Password()
		credentials := user.Username() + ":" + password
		settings.authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
	}

	return settings, nil
}

func proxyEnvValue(target *url.URL) string {
	names := []string{proxyEnvVar, strings.ToLower(proxyEnvVar)}
	if target != nil && target.Scheme == "https" {
		names = append([]string{httpsProxyEnvVar, strings.ToLower(httpsProxyEnvVar)}, names...)
	}
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func requestFullURI(target *url.URL) bool {
	name := fullURIEnvVar
	if target != nil && target.Scheme == "https" {
		name = httpsFullURIEnvVar
	}
	value := os.Getenv(name)
	if value == "" {
		return true
	}
	switch strings.ToLower(value) {
	case "0", "false", "off", "no":
		return false
	}
	return true
}
