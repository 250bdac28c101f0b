package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// maxSourceBytes caps how much of a source document is read.
// Protects against unbounded downloads; 50MB covers any reasonable PDF.
const maxSourceBytes = 50 << 20

// Loader fetches a source URI and extracts its plain text.
// PDF parsing and HTML readability extraction are the loader's concern;
// the rest of the pipeline only sees text.
type Loader interface {
	Load(ctx context.Context, uri string) (string, error)
}

// HTTPLoader loads http(s) and local file sources, extracting text by
// content type: PDF via a pure-Go PDF reader, HTML via readability
// extraction, and anything else as plain text.
type HTTPLoader struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPLoader creates an HTTPLoader. A nil client gets a 60s timeout default.
func NewHTTPLoader(client *http.Client, logger *slog.Logger) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPLoader{client: client, logger: logger}
}

// Load fetches uri and returns its extracted text.
// Fetch failures wrap ErrSourceUnreachable; extraction failures wrap
// ErrSourceUnparseable.
func (l *HTTPLoader) Load(ctx context.Context, uri string) (string, error) {
	data, contentType, err := l.fetch(ctx, uri)
	if err != nil {
		return "", err
	}

	text, err := extractText(data, contentType, uri)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSourceUnparseable, uri, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s: no text content", ErrSourceUnparseable, uri)
	}

	l.logger.Debug("loaded source",
		"uri", uri,
		"content_type", contentType,
		"bytes", len(data),
		"text_length", len(text))
	return text, nil
}

// fetch returns the raw bytes and content type for a URI.
func (l *HTTPLoader) fetch(ctx context.Context, uri string) ([]byte, string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, uri, err)
	}

	switch parsed.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, uri, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, uri, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("%w: %s: status %d", ErrSourceUnreachable, uri, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, uri, err)
		}
		return data, resp.Header.Get("Content-Type"), nil

	case "file", "":
		filePath := parsed.Path
		if parsed.Scheme == "" {
			filePath = uri
		}
		data, err := os.ReadFile(filePath) // #nosec G304 -- path comes from operator config
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, uri, err)
		}
		return data, "", nil

	default:
		return nil, "", fmt.Errorf("%w: %s: unsupported scheme %q", ErrSourceUnreachable, uri, parsed.Scheme)
	}
}

// extractText converts raw source bytes to plain text based on content type,
// falling back to the URI extension when the type is missing or generic.
func extractText(data []byte, contentType, uri string) (string, error) {
	switch sourceKind(contentType, uri) {
	case "pdf":
		return extractPDF(data)
	case "html":
		return extractHTML(data, uri)
	default:
		return string(data), nil
	}
}

// sourceKind classifies a source as "pdf", "html", or "text".
func sourceKind(contentType, uri string) string {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mediaType {
			case "application/pdf":
				return "pdf"
			case "text/html", "application/xhtml+xml":
				return "html"
			}
			if strings.HasPrefix(mediaType, "text/") {
				return "text"
			}
		}
	}

	switch strings.ToLower(path.Ext(strippedPath(uri))) {
	case ".pdf":
		return "pdf"
	case ".html", ".htm":
		return "html"
	}
	return "text"
}

// strippedPath returns the URI path without query or fragment.
func strippedPath(uri string) string {
	if parsed, err := url.Parse(uri); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return uri
}

// extractPDF extracts plain text from PDF bytes, page by page.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return sb.String(), nil
}

// extractHTML runs readability extraction to strip boilerplate.
func extractHTML(data []byte, uri string) (string, error) {
	pageURL, err := url.Parse(uri)
	if err != nil {
		pageURL = nil
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}
	return article.TextContent, nil
}
