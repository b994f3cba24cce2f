// Package gitsource clones configured registry repositories and
// collects the registry documents they carry.
package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/logfields"
)

// Client clones and updates registry repositories inside a workspace
// directory.
type Client struct {
	workspaceDir string
}

// NewClient creates a client that places clones under workspaceDir.
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir}
}

// CloneRepository clones a repository into the workspace, replacing any
// previous clone, and returns its path.
func (c *Client) CloneRepository(ctx context.Context, repo config.Repository) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, repo.Name)

	slog.Debug("Cloning repository",
		logfields.Repository(repo.Name),
		slog.String("url", repo.URL),
		slog.String("branch", repo.Branch),
		logfields.Path(repoPath))

	if err := os.RemoveAll(repoPath); err != nil {
		return "", fmt.Errorf("remove existing clone: %w", err)
	}

	cloneOptions := &git.CloneOptions{
		URL: repo.URL,
	}
	if repo.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		cloneOptions.SingleBranch = true
	}
	// Shallow history is only worth negotiating over the network.
	if isRemoteURL(repo.URL) {
		cloneOptions.Depth = 1
	}

	auth, err := authMethod(repo.Auth)
	if err != nil {
		return "", fmt.Errorf("setup authentication: %w", err)
	}
	cloneOptions.Auth = auth

	repository, err := git.PlainCloneContext(ctx, repoPath, false, cloneOptions)
	if err != nil {
		return "", fmt.Errorf("clone repository %s: %w", repo.URL, err)
	}

	if ref, err := repository.Head(); err == nil {
		slog.Info("Repository cloned",
			logfields.Repository(repo.Name),
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(repoPath))
	} else {
		slog.Info("Repository cloned",
			logfields.Repository(repo.Name),
			logfields.Path(repoPath))
	}

	return repoPath, nil
}

// UpdateRepository pulls an existing clone or clones from scratch when
// none is present. The watch daemon uses it with a persistent
// workspace so reconciles stay cheap.
func (c *Client) UpdateRepository(ctx context.Context, repo config.Repository) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, repo.Name)

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		slog.Debug("No existing clone, cloning", logfields.Repository(repo.Name))
		return c.CloneRepository(ctx, repo)
	}

	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	pullOptions := &git.PullOptions{
		RemoteName: "origin",
	}
	if repo.Branch != "" {
		pullOptions.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		pullOptions.SingleBranch = true
	}
	auth, err := authMethod(repo.Auth)
	if err != nil {
		return "", fmt.Errorf("setup authentication: %w", err)
	}
	pullOptions.Auth = auth

	err = worktree.PullContext(ctx, pullOptions)
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return "", fmt.Errorf("pull repository %s: %w", repo.URL, err)
	}

	if err == git.NoErrAlreadyUpToDate {
		slog.Info("Repository already up to date", logfields.Repository(repo.Name))
	} else if ref, headErr := repository.Head(); headErr == nil {
		slog.Info("Repository updated",
			logfields.Repository(repo.Name),
			slog.String("commit", ref.Hash().String()[:8]))
	}

	return repoPath, nil
}

// CollectRegistryFiles resolves the configured registry paths inside a
// clone. A path naming a directory contributes every YAML document in
// it. Missing paths are logged and skipped so one moved file does not
// sink the whole run.
func (c *Client) CollectRegistryFiles(repoPath string, paths []string) ([]string, error) {
	var files []string
	for _, rel := range paths {
		full := filepath.Join(repoPath, rel)
		info, err := os.Stat(full)
		if os.IsNotExist(err) {
			slog.Warn("Configured registry path missing",
				logfields.Path(rel),
				logfields.Repository(filepath.Base(repoPath)))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat registry path %s: %w", rel, err)
		}

		if !info.IsDir() {
			files = append(files, full)
			continue
		}

		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, fmt.Errorf("read registry directory %s: %w", rel, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch filepath.Ext(entry.Name()) {
			case ".yaml", ".yml":
				found = append(found, filepath.Join(full, entry.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// Discover clones every repository and returns the union of registry
// documents, in repository order.
func (c *Client) Discover(ctx context.Context, repos []config.Repository) ([]string, error) {
	var files []string
	for _, repo := range repos {
		repoPath, err := c.CloneRepository(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
		}
		collected, err := c.CollectRegistryFiles(repoPath, repo.Paths)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
		}
		slog.Info("Collected registry documents",
			logfields.Repository(repo.Name),
			logfields.Files(len(collected)))
		files = append(files, collected...)
	}
	return files, nil
}

// authMethod creates transport authentication from the config block.
func authMethod(auth *config.AuthConfig) (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}
	switch auth.Type {
	case "none", "":
		return nil, nil

	case "ssh":
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home directory for ssh key: %w", err)
			}
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		publicKeys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, fmt.Errorf("load ssh key from %s: %w", keyPath, err)
		}
		return publicKeys, nil

	case "token":
		if auth.Token == "" {
			return nil, fmt.Errorf("token authentication requires a token")
		}
		// Forges accept the token over basic auth with a fixed
		// username.
		return &http.BasicAuth{
			Username: "token",
			Password: auth.Token,
		}, nil

	case "basic":
		if auth.Username == "" || auth.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", auth.Type)
	}
}

func isRemoteURL(url string) bool {
	return strings.Contains(url, "://") || strings.HasPrefix(url, "git@")
}
