// Package bootstrap prepares the container: it brings the simulator checkout
// up to date and starts the visualizer.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultBranches are tried in order when updating a checkout.
var DefaultBranches = []string{"main", "master"}

// DefaultRemote is the remote pulled from.
const DefaultRemote = "origin"

// Git runs the git operations needed to sync a checkout.
type Git interface {
	Pull(ctx context.Context, dir, remote, branch string) error
	Clone(ctx context.Context, url, dir string) error
}

// CommandGit runs the git command line tool.
type CommandGit struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Pull runs git pull in a checkout.
func (g CommandGit) Pull(ctx context.Context, dir, remote, branch string) error {
	return g.run(ctx, "-C", dir, "pull", remote, branch)
}

// Clone runs git clone.
func (g CommandGit) Clone(ctx context.Context, url, dir string) error {
	return g.run(ctx, "clone", url, dir)
}

func (g CommandGit) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w", args, err)
	}

	return nil
}

// A Repo is a checkout to keep in sync.
type Repo struct {
	URL      string
	Dir      string
	Remote   string
	Branches []string
}

// SyncAction is what Sync did.
type SyncAction string

// Sync actions.
const (
	ActionPulled SyncAction = "pulled"
	ActionCloned SyncAction = "cloned"
	ActionKept   SyncAction = "kept"
)

// A SyncResult reports the outcome of Sync.
type SyncResult struct {
	Action SyncAction
	Branch string
}

// Sync updates an existing checkout from the first branch that can be pulled,
// or clones the repository if the directory is not a checkout. When no branch
// can be pulled the checkout is kept as it is.
func Sync(ctx context.Context, git Git, repo Repo) (SyncResult, error) {
	remote := repo.Remote
	if remote == "" {
		remote = DefaultRemote
	}

	branches := repo.Branches
	if len(branches) == 0 {
		branches = DefaultBranches
	}

	if isCheckout(repo.Dir) {
		for _, b := range branches {
			err := git.Pull(ctx, repo.Dir, remote, b)
			if err == nil {
				slog.Info("checkout updated", "dir", repo.Dir, "branch", b)
				return SyncResult{Action: ActionPulled, Branch: b}, nil
			}

			slog.Debug("pull failed", "dir", repo.Dir, "branch", b, "error", err)
		}

		slog.Warn("no branch could be pulled, keeping checkout",
			"dir", repo.Dir, "branches", branches)

		return SyncResult{Action: ActionKept}, nil
	}

	if repo.URL == "" {
		return SyncResult{}, errors.New("no checkout and no repository URL")
	}

	if err := git.Clone(ctx, repo.URL, repo.Dir); err != nil {
		return SyncResult{}, fmt.Errorf("cloning %s: %w", repo.URL, err)
	}

	slog.Info("repository cloned", "url", repo.URL, "dir", repo.Dir)

	return SyncResult{Action: ActionCloned}, nil
}

func isCheckout(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Launch runs a program in the foreground with the standard streams of this
// process.
func Launch(ctx context.Context, argv []string, dir string) error {
	if len(argv) == 0 {
		return errors.New("nothing to launch")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("launching", "argv", argv, "dir", dir)

	return cmd.Run()
}

// CheckHealth asks a health endpoint once.
func CheckHealth(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	rsp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", rsp.Status)
	}

	return nil
}
