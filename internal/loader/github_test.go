package loader

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/localrag/internal/github"
)

func TestGitHubSource_Load(t *testing.T) {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	file := func(name, content string) map[string]any {
		return map[string]any{
			"type": "file", "name": name, "path": "docs/" + name, "sha": "sha-" + name,
			"encoding": "base64", "content": base64.StdEncoding.EncodeToString([]byte(content)),
		}
	}

	mux.HandleFunc("/repos/acme/handbook/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		write(w, []any{
			map[string]any{"name": "intro.md", "type": "file"},
			map[string]any{"name": "notes.txt", "type": "file"},
		})
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/intro.md", func(w http.ResponseWriter, r *http.Request) {
		write(w, file("intro.md", "# Intro\n\nWelcome.\n\n## Usage\n\nRun it.\n"))
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		write(w, file("notes.txt", "alpha\fbeta"))
	})
	mux.HandleFunc("/repos/acme/handbook/commits", func(w http.ResponseWriter, r *http.Request) {
		write(w, []any{map[string]any{"sha": "deadbeef"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := github.NewClient("")
	require.NoError(t, err)
	client, err = client.WithBaseURL(srv.URL)
	require.NoError(t, err)

	src := NewGitHubSource(github.NewFetcher(client, "acme", "handbook", "docs"), nil)
	assert.Equal(t, "github.com/acme/handbook", src.Location())

	pages, err := src.Load(t.Context())
	require.NoError(t, err)

	require.Len(t, pages, 4)
	assert.Equal(t, "acme/handbook/intro.md", pages[0].SourceID)
	assert.Equal(t, "# Intro > ## Usage\n\nRun it.", pages[1].Text)
	assert.Equal(t, "acme/handbook/notes.txt", pages[3].SourceID)
	assert.Equal(t, 1, pages[3].Number)
	assert.Equal(t, "beta", pages[3].Text)
}

func TestGitHubSource_ListFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	client, err := github.NewClient("")
	require.NoError(t, err)
	client, err = client.WithBaseURL(srv.URL)
	require.NoError(t, err)

	_, err = NewGitHubSource(github.NewFetcher(client, "acme", "handbook", "docs"), nil).Load(t.Context())
	assert.ErrorContains(t, err, "failed to list documents")
}
