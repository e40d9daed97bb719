package gitstore

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultBranch is the distinguished branch every conversation repository
// starts on. It can never be deleted.
const DefaultBranch = "main"

// Store keeps one git repository per conversation under a common base
// directory. All durability and history guarantees are delegated to the
// external git binary; every invocation is a blocking subprocess call.
//
// Invocations are deliberately not bound to a context: a caller that gives
// up waiting must not kill an in-flight commit, it just discards the result.
type Store struct {
	baseDir string
}

// CommitInfo is one entry of a repository's commit log.
type CommitInfo struct {
	Hash    string
	Message string
	Date    time.Time
	Author  string
}

// New creates a Store rooted at baseDir, creating the directory if needed.
func New(baseDir string) (*Store, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve base directory %s", baseDir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create base directory %s", abs)
	}
	return &Store{baseDir: abs}, nil
}

// BaseDir returns the absolute base directory holding all repositories.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RepoPath returns the repository directory for a conversation.
func (s *Store) RepoPath(conversationID int64) string {
	return filepath.Join(s.baseDir, strconv.FormatInt(conversationID, 10))
}

// Ensure idempotently creates the conversation's repository directory and
// initializes git metadata if absent. Returns the repository path.
func (s *Store) Ensure(conversationID int64) (string, error) {
	repoPath := s.RepoPath(conversationID)
	if err := os.MkdirAll(repoPath, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create repository directory %s", repoPath)
	}

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); os.IsNotExist(err) {
		if _, err := s.run(conversationID, "init", "--initial-branch="+DefaultBranch); err != nil {
			return "", err
		}
		// Commits need an author identity; set one locally so the store
		// works without global git configuration.
		if _, err := s.run(conversationID, "config", "user.name", "chronicle"); err != nil {
			return "", err
		}
		if _, err := s.run(conversationID, "config", "user.email", "chronicle@localhost"); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", errors.Wrapf(err, "could not stat %s", repoPath)
	}

	return repoPath, nil
}

// run executes git with the given arguments inside the conversation's
// repository. A non-zero exit surfaces as an OperationError carrying the
// captured output.
func (s *Store) run(conversationID int64, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = s.RepoPath(conversationID)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log.Trace().
		Int64("conversation_id", conversationID).
		Strs("args", args).
		Bool("ok", err == nil).
		Msg("git invocation")

	if err != nil {
		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}
		return "", &OperationError{Args: args, Output: output}
	}
	return stdout.String(), nil
}

// Commit stages all working-tree changes and records a snapshot. Returns
// false when nothing changed since the last snapshot; no-op commits are not
// recorded.
func (s *Store) Commit(conversationID int64, message string) (bool, error) {
	if _, err := s.Ensure(conversationID); err != nil {
		return false, err
	}

	if _, err := s.run(conversationID, "add", "-A"); err != nil {
		return false, err
	}

	status, err := s.run(conversationID, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}

	if _, err := s.run(conversationID, "commit", "-m", message); err != nil {
		return false, err
	}
	log.Debug().
		Int64("conversation_id", conversationID).
		Str("message", message).
		Msg("committed snapshot")
	return true, nil
}

// CurrentBranch returns the name of the active branch.
func (s *Store) CurrentBranch(conversationID int64) (string, error) {
	if _, err := s.Ensure(conversationID); err != nil {
		return "", err
	}
	out, err := s.run(conversationID, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListBranches returns all branch names. A freshly initialized repository
// with no commits has no branches yet.
func (s *Store) ListBranches(conversationID int64) ([]string, error) {
	if _, err := s.Ensure(conversationID); err != nil {
		return nil, err
	}
	out, err := s.run(conversationID, "branch", "--list", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}

	branches := []string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// HasBranch reports whether the named branch exists.
func (s *Store) HasBranch(conversationID int64, name string) (bool, error) {
	branches, err := s.ListBranches(conversationID)
	if err != nil {
		return false, err
	}
	for _, b := range branches {
		if b == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateBranch creates a branch pointing at the current snapshot, and
// optionally switches to it.
func (s *Store) CreateBranch(conversationID int64, name string, switchTo bool) error {
	exists, err := s.HasBranch(conversationID, name)
	if err != nil {
		return err
	}
	if exists {
		return &BranchError{Branch: name, Kind: ErrBranchExists}
	}

	if _, err := s.run(conversationID, "branch", name); err != nil {
		return err
	}
	if switchTo {
		if _, err := s.run(conversationID, "checkout", name); err != nil {
			return err
		}
	}
	return nil
}

// SwitchBranch moves the working tree to the named branch, committing any
// pending changes first so nothing is lost on checkout.
func (s *Store) SwitchBranch(conversationID int64, name string) error {
	exists, err := s.HasBranch(conversationID, name)
	if err != nil {
		return err
	}
	if !exists {
		return &BranchError{Branch: name, Kind: ErrBranchNotFound}
	}

	if _, err := s.Commit(conversationID, "Auto-save before branch switch"); err != nil {
		return err
	}
	_, err = s.run(conversationID, "checkout", name)
	return err
}

// Checkout moves the working tree without the auto-save commit. Used by the
// merge engine's read-only excursion, which must not create snapshots.
func (s *Store) Checkout(conversationID int64, name string) error {
	_, err := s.run(conversationID, "checkout", name)
	return err
}

// DeleteBranch force-deletes a branch. The default branch and the active
// branch are protected. Unreachable history is not garbage collected.
func (s *Store) DeleteBranch(conversationID int64, name string) error {
	if name == DefaultBranch {
		return &BranchError{Branch: name, Kind: ErrProtectedBranch}
	}

	current, err := s.CurrentBranch(conversationID)
	if err != nil {
		return err
	}
	if name == current {
		return &BranchError{Branch: name, Kind: ErrCurrentBranch}
	}

	exists, err := s.HasBranch(conversationID, name)
	if err != nil {
		return err
	}
	if !exists {
		return &BranchError{Branch: name, Kind: ErrBranchNotFound}
	}

	_, err = s.run(conversationID, "branch", "-D", name)
	return err
}

// RenameBranch renames the active branch.
func (s *Store) RenameBranch(conversationID int64, newName string) error {
	exists, err := s.HasBranch(conversationID, newName)
	if err != nil {
		return err
	}
	if exists {
		return &BranchError{Branch: newName, Kind: ErrBranchExists}
	}

	_, err = s.run(conversationID, "branch", "-m", newName)
	return err
}

// Log returns up to limit most recent snapshots, newest first. A repository
// without commits yields an empty log.
func (s *Store) Log(conversationID int64, limit int) ([]CommitInfo, error) {
	if _, err := s.Ensure(conversationID); err != nil {
		return nil, err
	}

	out, err := s.run(conversationID, "log", "-"+strconv.Itoa(limit), "--format=%H|%s|%aI|%an")
	if err != nil {
		// A repository with no commits has no log; git exits non-zero.
		return []CommitInfo{}, nil
	}

	commits := []CommitInfo{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		date, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			date = time.Time{}
		}
		commits = append(commits, CommitInfo{
			Hash:    parts[0],
			Message: parts[1],
			Date:    date,
			Author:  parts[3],
		})
	}
	return commits, nil
}

// IsRepo reports whether the directory is an initialized conversation
// repository.
func (s *Store) IsRepo(conversationID int64) bool {
	_, err := os.Stat(filepath.Join(s.RepoPath(conversationID), ".git"))
	return err == nil
}
