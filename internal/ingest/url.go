package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// URLAdapter downloads files from HTTP/HTTPS URLs into a temp directory.
type URLAdapter struct {
	client  *http.Client
	tempDir string
}

// NewURLAdapter creates a URL adapter with the given request timeout.
func NewURLAdapter(timeout time.Duration, tempDir string) *URLAdapter {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &URLAdapter{
		client:  &http.Client{Timeout: timeout},
		tempDir: tempDir,
	}
}

// SourceType returns "url".
func (a *URLAdapter) SourceType() string { return "url" }

// Fetch downloads the file and saves it to a temp path.
func (a *URLAdapter) Fetch(ctx context.Context, reference string) (*FileReference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reference, nil)
	if err != nil {
		return nil, &SourceError{SourceType: "url", Reference: reference, Reason: "invalid URL", Err: err}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &SourceError{SourceType: "url", Reference: reference, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &SourceError{
			SourceType: "url",
			Reference:  reference,
			Reason:     fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	filename := filenameFromURL(reference, resp)

	tmp, err := os.CreateTemp(a.tempDir, "intellidoc-ingest-*"+path.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		os.Remove(tmp.Name())
		return nil, &SourceError{SourceType: "url", Reference: reference, Reason: "download failed", Err: err}
	}

	mimeType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &FileReference{
		SourceType:      "url",
		SourceReference: reference,
		Filename:        filename,
		MIMEType:        mimeType,
		FileSizeBytes:   size,
		ContentPath:     tmp.Name(),
	}, nil
}

// Exists issues a HEAD request against the URL.
func (a *URLAdapter) Exists(ctx context.Context, reference string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reference, nil)
	if err != nil {
		return false, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300, nil
}

// filenameFromURL derives a filename from the Content-Disposition header
// or the URL path.
func filenameFromURL(reference string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		for _, part := range strings.Split(cd, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "filename=") {
				name := strings.Trim(strings.TrimPrefix(part, "filename="), `"`)
				if name != "" {
					return name
				}
			}
		}
	}
	if u, err := url.Parse(reference); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			if decoded, err := url.QueryUnescape(name); err == nil {
				return decoded
			}
			return name
		}
	}
	return "download"
}
