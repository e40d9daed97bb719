package history

import (
	"fmt"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/go-go-golems/chronicle/pkg/history/gitstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CurrentBranch returns the conversation's active branch name.
func (r *Repository) CurrentBranch(conversationID int64) (string, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.CurrentBranch(conversationID)
}

// ListBranches returns all branch names of the conversation.
func (r *Repository) ListBranches(conversationID int64) ([]string, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.ListBranches(conversationID)
}

// CreateBranch creates a branch at the current snapshot, committing pending
// changes first so the branch captures what the caller sees. When switchTo
// is set the working tree moves to the new branch; the caller must then
// reload its in-memory view from the working tree.
func (r *Repository) CreateBranch(conversationID int64, name string, switchTo bool) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Commit(conversationID, "Auto-save before branch"); err != nil {
		return err
	}
	return r.store.CreateBranch(conversationID, name, switchTo)
}

// SwitchBranch moves the conversation to the named branch. The caller must
// reload its in-memory view from the working tree afterwards.
func (r *Repository) SwitchBranch(conversationID int64, name string) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.SwitchBranch(conversationID, name)
}

// DeleteBranch deletes a branch, refusing the default and active branches.
func (r *Repository) DeleteBranch(conversationID int64, name string) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.DeleteBranch(conversationID, name)
}

// RenameBranch renames the conversation's active branch.
func (r *Repository) RenameBranch(conversationID int64, newName string) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.RenameBranch(conversationID, newName)
}

// Log returns up to limit most recent snapshots, newest first.
func (r *Repository) Log(conversationID int64, limit int) ([]gitstore.CommitInfo, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.store.Log(conversationID, limit)
}

// MergeBranch appends the source branch's messages past the divergence point
// onto the current branch and records one merge snapshot. Returns the number
// of messages appended; zero means the branches had nothing to merge and no
// snapshot was recorded.
//
// Reading the source branch requires a checkout excursion through the shared
// working tree. The excursion restores the original branch before returning,
// even when loading fails, and the whole operation holds the conversation's
// lock so no other write can observe the intermediate state.
func (r *Repository) MergeBranch(conversationID int64, sourceBranch string) (int, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Commit(conversationID, "Auto-save before merge"); err != nil {
		return 0, err
	}

	currentBranch, err := r.store.CurrentBranch(conversationID)
	if err != nil {
		return 0, err
	}
	if sourceBranch == currentBranch {
		return 0, &gitstore.BranchError{Branch: sourceBranch, Kind: ErrCannotMergeCurrent}
	}

	exists, err := r.store.HasBranch(conversationID, sourceBranch)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, &gitstore.BranchError{Branch: sourceBranch, Kind: ErrBranchNotFound}
	}

	currentDoc, err := r.loadDoc(conversationID)
	if err != nil {
		return 0, err
	}
	currentMessages := []conversation.Record{}
	model := ""
	if currentDoc != nil {
		currentMessages = currentDoc.Messages
		model = currentDoc.Model
	}

	if err := r.store.Checkout(conversationID, sourceBranch); err != nil {
		return 0, err
	}
	sourceDoc, loadErr := r.loadDoc(conversationID)
	if err := r.store.Checkout(conversationID, currentBranch); err != nil {
		return 0, errors.Wrapf(err, "could not restore branch %s after merge excursion", currentBranch)
	}
	if loadErr != nil {
		return 0, loadErr
	}
	sourceMessages := []conversation.Record{}
	if sourceDoc != nil {
		sourceMessages = sourceDoc.Messages
	}

	divergence := divergenceIndex(currentMessages, sourceMessages)
	toMerge := sourceMessages[divergence:]
	if len(toMerge) == 0 {
		return 0, nil
	}

	merged := make([]conversation.Record, 0, len(currentMessages)+len(toMerge))
	merged = append(merged, currentMessages...)
	merged = append(merged, toMerge...)

	if err := r.saveDoc(conversationID, merged, model); err != nil {
		return 0, err
	}
	if _, err := r.store.Commit(conversationID, fmt.Sprintf("Merge branch '%s'", sourceBranch)); err != nil {
		return 0, err
	}

	log.Debug().
		Int64("conversation_id", conversationID).
		Str("source", sourceBranch).
		Int("divergence", divergence).
		Int("merged", len(toMerge)).
		Msg("merged branch")
	return len(toMerge), nil
}

// divergenceIndex returns the length of the longest common prefix of the two
// message lists, comparing content and role. Comparison stops at the first
// mismatch or at the end of the shorter list.
func divergenceIndex(current, source []conversation.Record) int {
	divergence := 0
	for i := 0; i < len(current) && i < len(source); i++ {
		if current[i].Content != source[i].Content || current[i].Role != source[i].Role {
			break
		}
		divergence = i + 1
	}
	return divergence
}
