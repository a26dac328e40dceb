package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ErrNotFound is returned when the requested GitHub resource does not exist
// or the token cannot see it.
var ErrNotFound = errors.New("github: resource not found")

// TreeEntry is one blob in a repository tree listing.
type TreeEntry struct {
	Path string
	SHA  string
}

// Commit is a single commit as listed on a branch.
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	AvatarURL string    `json:"avatar_url"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// CommitFile is one changed file inside a commit detail.
type CommitFile struct {
	Filename  string
	Additions int
	Deletions int
	Patch     string
}

// CommitDetail carries the full commit context used for doc generation.
type CommitDetail struct {
	SHA        string
	Message    string
	AuthorName string
	Date       time.Time
	Additions  int
	Deletions  int
	Total      int
	Files      []CommitFile
}

// Repo is a repository as seen by the authenticated user.
type Repo struct {
	Name          string
	FullName      string
	HTMLURL       string
	DefaultBranch string
	UpdatedAt     time.Time
}

// Profile is the authenticated GitHub user's public profile.
type Profile struct {
	Login     string
	Name      string
	AvatarURL string
}

// Client wraps the GitHub REST API for a single user token.
type Client struct {
	gh *gh.Client
}

// NewClient builds a client authenticated with an OAuth access token.
func NewClient(ctx context.Context, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{gh: gh.NewClient(oauth2.NewClient(ctx, src))}
}

func splitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q", fullName)
	}
	return parts[0], parts[1], nil
}

// DefaultBranch returns the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, fullName string) (string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", err
	}
	var repo *gh.Repository
	err = c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		repo, resp, err = c.gh.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return "", err
	}
	return repo.GetDefaultBranch(), nil
}

// ListTree lists every blob in the tree at ref, recursively.
func (c *Client) ListTree(ctx context.Context, fullName, ref string) ([]TreeEntry, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	var tree *gh.Tree
	err = c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		tree, resp, err = c.gh.Git.GetTree(ctx, owner, name, ref, true)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{Path: e.GetPath(), SHA: e.GetSHA()})
	}
	return entries, nil
}

// FetchFileContent downloads one file at ref and returns its decoded
// content together with the blob SHA.
func (c *Client) FetchFileContent(ctx context.Context, fullName, path, ref string) (string, string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", "", err
	}
	var file *gh.RepositoryContent
	err = c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		file, _, resp, err = c.gh.Repositories.GetContents(ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: ref})
		return resp, err
	})
	if err != nil {
		return "", "", err
	}
	if file == nil {
		return "", "", fmt.Errorf("%w: %s is not a file", ErrNotFound, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", "", err
	}
	return content, file.GetSHA(), nil
}

// ListCommits lists commits on the default branch, newest first.
func (c *Client) ListCommits(ctx context.Context, fullName string, perPage, page int) ([]Commit, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	var commits []*gh.RepositoryCommit
	err = c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		commits, resp, err = c.gh.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{
			ListOptions: gh.ListOptions{PerPage: perPage, Page: page},
		})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Commit, 0, len(commits))
	for _, rc := range commits {
		out = append(out, Commit{
			SHA:       rc.GetSHA(),
			Message:   rc.GetCommit().GetMessage(),
			Author:    rc.GetCommit().GetAuthor().GetName(),
			AvatarURL: rc.GetAuthor().GetAvatarURL(),
			Timestamp: rc.GetCommit().GetAuthor().GetDate().Time,
			URL:       rc.GetHTMLURL(),
		})
	}
	return out, nil
}

// GetCommit returns the full detail of one commit including file patches.
func (c *Client) GetCommit(ctx context.Context, fullName, sha string) (*CommitDetail, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	var rc *gh.RepositoryCommit
	err = c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		rc, resp, err = c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	detail := &CommitDetail{
		SHA:        rc.GetSHA(),
		Message:    rc.GetCommit().GetMessage(),
		AuthorName: rc.GetCommit().GetAuthor().GetName(),
		Date:       rc.GetCommit().GetAuthor().GetDate().Time,
		Additions:  rc.GetStats().GetAdditions(),
		Deletions:  rc.GetStats().GetDeletions(),
		Total:      rc.GetStats().GetTotal(),
	}
	for _, f := range rc.Files {
		detail.Files = append(detail.Files, CommitFile{
			Filename:  f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Patch:     f.GetPatch(),
		})
	}
	return detail, nil
}

// UserRepos lists the repositories the authenticated user can push to,
// most recently updated first.
func (c *Client) UserRepos(ctx context.Context) ([]Repo, error) {
	opts := &gh.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var out []Repo
	for {
		var repos []*gh.Repository
		var page *gh.Response
		err := c.withRetry(ctx, func() (*gh.Response, error) {
			var err error
			repos, page, err = c.gh.Repositories.List(ctx, "", opts)
			return page, err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range repos {
			out = append(out, Repo{
				Name:          r.GetName(),
				FullName:      r.GetFullName(),
				HTMLURL:       r.GetHTMLURL(),
				DefaultBranch: r.GetDefaultBranch(),
				UpdatedAt:     r.GetUpdatedAt().Time,
			})
		}
		if page == nil || page.NextPage == 0 {
			break
		}
		opts.Page = page.NextPage
	}
	return out, nil
}

// UserProfile returns the authenticated user's profile.
func (c *Client) UserProfile(ctx context.Context) (*Profile, error) {
	var user *gh.User
	err := c.withRetry(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		user, resp, err = c.gh.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return &Profile{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// ExchangeCode trades an OAuth authorization code for an access token.
func ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (string, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://github.com/login/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("github oauth: %s: %s", result.Error, result.ErrorDescription)
	}
	if result.AccessToken == "" {
		return "", errors.New("github oauth: empty access token")
	}
	return result.AccessToken, nil
}
