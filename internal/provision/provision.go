// Package provision creates the remote repository a mirror pushes to.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// userAgent identifies agsync to the API; GitHub rejects requests without one.
const userAgent = "agsync"

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 64 << 10

// ErrAlreadyExists is returned when the repository name is taken. Bootstrap
// treats it as success: the mirror simply reuses the existing repository.
var ErrAlreadyExists = errors.New("repository already exists")

// Error is a non-success API response.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("repository API returned %d: %s", e.StatusCode, e.Body)
}

// Repository is the subset of the API's repository object agsync uses.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
	CloneURL string `json:"clone_url"`
}

// Provisioner creates remote repositories.
type Provisioner interface {
	CreateRepository(ctx context.Context, name string, private bool) (*Repository, error)
}

// GitHub creates repositories for the token's owner through the REST API.
type GitHub struct {
	apiURL string
	token  string
	client *http.Client
}

// NewGitHub creates a client for apiURL (DefaultAPIURL when empty). A nil
// client uses one with a 30 second timeout.
func NewGitHub(apiURL, token string, client *http.Client) *GitHub {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHub{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: client,
	}
}

type createRequest struct {
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	AutoInit bool   `json:"auto_init"`
}

// CreateRepository creates an empty repository. The first commit always
// comes from the mirror, so the API is told not to add one.
func (g *GitHub) CreateRepository(ctx context.Context, name string, private bool) (*Repository, error) {
	payload, err := json.Marshal(createRequest{Name: name, Private: private})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/user/repos", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(body))
		if strings.Contains(text, "already exists") {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Body: text}
	}

	var repo Repository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("failed to decode repository: %w", err)
	}
	return &repo, nil
}

// RemoteURL builds the authenticated HTTPS remote for owner/name on host,
// e.g. https://TOKEN@github.com/owner/name.git.
func RemoteURL(host, token, owner, name string) string {
	if host == "" {
		host = "github.com"
	}
	name = strings.TrimSuffix(name, ".git") + ".git"
	if token == "" {
		return fmt.Sprintf("https://%s/%s/%s", host, owner, name)
	}
	return fmt.Sprintf("https://%s@%s/%s/%s", token, host, owner, name)
}
