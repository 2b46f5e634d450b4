package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/meshdesk/internal/apperr"
	"github.com/starford/meshdesk/internal/intake"
)

const maxFetchSize = 64 << 20 // 64 MB

// blockedHostCheck is replaced in tests that fetch from httptest servers.
var blockedHostCheck = checkBlockedHost

func (s *Server) importURLs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := req.RequireStringSlice("urls")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sources) == 0 {
		return mcp.NewToolResultError("urls must not be empty"), nil
	}
	names := req.GetStringSlice("names", nil)
	if len(names) > 0 && len(names) != len(sources) {
		return mcp.NewToolResultError(fmt.Sprintf("names has %d items, urls has %d", len(names), len(sources))), nil
	}

	uploads := make([]intake.Upload, 0, len(sources))
	for i, src := range sources {
		var data []byte
		if strings.HasPrefix(src, "data:") {
			data, err = decodeDataURI(src)
		} else {
			data, err = fetchHTTP(ctx, src)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", shorten(src), err)), nil
		}

		name := ""
		if len(names) > 0 {
			name = names[i]
		}
		if name == "" {
			name = filenameFromURL(src)
		}
		uploads = append(uploads, intake.Upload{Name: name, Body: bytes.NewReader(data)})
	}

	res, err := s.intake.Import(ctx, s.ws, uploads)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textJSON(importView{State: s.state(), Skipped: res.Skipped}), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI. The media
// type is ignored; STL payloads arrive under many names.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("non-base64 data URI: %w", apperr.ErrUnsupported)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxFetchSize)
	}
	return data, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s (only http/https): %w", parsed.Scheme, apperr.ErrUnsupported)
	}
	if err := blockedHostCheck(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return blockedHostCheck(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxFetchSize)
	}
	return data, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL takes the last path segment of a URL, falling back to a
// UUID with an .stl extension.
func filenameFromURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	return uuid.New().String() + ".stl"
}

func shorten(s string) string {
	if len(s) > 64 {
		return s[:61] + "..."
	}
	return s
}
