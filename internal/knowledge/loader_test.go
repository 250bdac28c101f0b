package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/log"
)

func TestHTTPLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("plain text over http", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Pad Thai requires tamarind paste."))
		}))
		defer srv.Close()

		loader := NewHTTPLoader(srv.Client(), log.NewNop())
		text, err := loader.Load(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Pad Thai requires tamarind paste.", text)
	})

	t.Run("html gets readability extraction", func(t *testing.T) {
		t.Parallel()
		page := `<!DOCTYPE html><html><head><title>Thai Cooking</title></head><body>
			<nav>Home | About | Contact</nav>
			<article><h1>Green Curry</h1>
			<p>Green curry paste combines green chilies, galangal, and lemongrass.
			Fry the paste in coconut cream before adding the rest of the milk.</p>
			</article></body></html>`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		}))
		defer srv.Close()

		loader := NewHTTPLoader(srv.Client(), log.NewNop())
		text, err := loader.Load(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, text, "galangal")
	})

	t.Run("non-200 status is unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		loader := NewHTTPLoader(srv.Client(), log.NewNop())
		_, err := loader.Load(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrSourceUnreachable)
	})

	t.Run("connection failure is unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		url := srv.URL
		srv.Close() // nothing listening anymore

		loader := NewHTTPLoader(nil, log.NewNop())
		_, err := loader.Load(context.Background(), url)
		require.ErrorIs(t, err, ErrSourceUnreachable)
	})

	t.Run("local file path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "recipe.txt")
		require.NoError(t, os.WriteFile(path, []byte("Tom yum balances hot and sour."), 0o600))

		loader := NewHTTPLoader(nil, log.NewNop())
		text, err := loader.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "Tom yum balances hot and sour.", text)
	})

	t.Run("missing local file is unreachable", func(t *testing.T) {
		t.Parallel()
		loader := NewHTTPLoader(nil, log.NewNop())
		_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
		require.ErrorIs(t, err, ErrSourceUnreachable)
	})

	t.Run("unsupported scheme is unreachable", func(t *testing.T) {
		t.Parallel()
		loader := NewHTTPLoader(nil, log.NewNop())
		_, err := loader.Load(context.Background(), "ftp://example.com/file.pdf")
		require.ErrorIs(t, err, ErrSourceUnreachable)
	})

	t.Run("empty body is unparseable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
		}))
		defer srv.Close()

		loader := NewHTTPLoader(srv.Client(), log.NewNop())
		_, err := loader.Load(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrSourceUnparseable)
	})

	t.Run("corrupt pdf is unparseable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("definitely not a pdf"))
		}))
		defer srv.Close()

		loader := NewHTTPLoader(srv.Client(), log.NewNop())
		_, err := loader.Load(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrSourceUnparseable)
	})
}

func TestSourceKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		uri         string
		want        string
	}{
		{name: "pdf by content type", contentType: "application/pdf", uri: "https://x/doc", want: "pdf"},
		{name: "pdf by extension", contentType: "", uri: "https://x/ThaiRecipes.pdf", want: "pdf"},
		{name: "pdf extension with query", contentType: "", uri: "https://x/doc.pdf?sig=abc", want: "pdf"},
		{name: "html by content type", contentType: "text/html; charset=utf-8", uri: "https://x/page", want: "html"},
		{name: "html by extension", contentType: "", uri: "page.html", want: "html"},
		{name: "binary content type falls back to extension", contentType: "application/octet-stream", uri: "doc.pdf", want: "pdf"},
		{name: "plain text default", contentType: "", uri: "notes", want: "text"},
		{name: "text content type", contentType: "text/markdown", uri: "readme.md", want: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sourceKind(tt.contentType, tt.uri))
		})
	}
}
