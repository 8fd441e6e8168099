package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// DefaultExtensions are the file types ListDocs returns when none are given.
var DefaultExtensions = []string{".md", ".markdown", ".txt"}

// FetchedDoc represents a document fetched from GitHub
type FetchedDoc struct {
	Path    string // Relative path within the base directory
	Content string
	SHA     string // File's Git blob SHA
	URL     string // GitHub raw URL
}

// Fetcher handles fetching documents from a GitHub repository directory
type Fetcher struct {
	client     *Client
	owner      string
	repo       string
	basePath   string
	extensions []string
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client, owner, repo, basePath string, extensions ...string) *Fetcher {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Fetcher{
		client:     client,
		owner:      owner,
		repo:       repo,
		basePath:   strings.Trim(basePath, "/"),
		extensions: extensions,
	}
}

// ParseLocation splits "owner/repo[/base/path]" into its parts.
func ParseLocation(loc string) (owner, repo, basePath string, err error) {
	parts := strings.SplitN(strings.Trim(loc, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("expected owner/repo[/path], got %q", loc)
	}
	if len(parts) == 3 {
		basePath = parts[2]
	}
	return parts[0], parts[1], basePath, nil
}

// Repository returns "owner/repo".
func (f *Fetcher) Repository() string {
	return f.owner + "/" + f.repo
}

// ListDocs recursively lists all matching files in the repository directory
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.basePath, "")
}

// listDocsRecursive recursively traverses directories to find matching files
func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if f.wanted(*item.Name) {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

func (f *Fetcher) wanted(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range f.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FetchDoc fetches the content of a specific file
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	rawURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/HEAD/%s", f.owner, f.repo, fullPath)

	return &FetchedDoc{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
		URL:     rawURL,
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the base directory
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
