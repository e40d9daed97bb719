package history

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// InstructionPath returns the versioned, conversation-scoped instruction
// file inside the conversation's repository.
func (r *Repository) InstructionPath(conversationID int64) string {
	return filepath.Join(r.store.RepoPath(conversationID), instructionFile)
}

// GlobalInstructionPath returns the unversioned instruction file shared by
// all conversations.
func (r *Repository) GlobalInstructionPath() string {
	return r.globalInstructionPath
}

// Instruction returns the conversation-scoped instruction text, empty when
// none has been written.
func (r *Repository) Instruction(conversationID int64) (string, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(r.InstructionPath(conversationID))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "could not read instruction for conversation %d", conversationID)
	}
	return string(data), nil
}

// SaveInstruction writes the conversation-scoped instruction and commits
// when autoCommit is set.
func (r *Repository) SaveInstruction(conversationID int64, content string, autoCommit bool) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return err
	}
	if err := os.WriteFile(r.InstructionPath(conversationID), []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "could not write instruction for conversation %d", conversationID)
	}
	if autoCommit {
		if _, err := r.store.Commit(conversationID, "Update conversation instruction"); err != nil {
			return err
		}
	}
	return nil
}

// GlobalInstruction returns the shared instruction text, empty when the file
// does not exist.
func (r *Repository) GlobalInstruction() (string, error) {
	data, err := os.ReadFile(r.globalInstructionPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "could not read global instruction")
	}
	return string(data), nil
}

// SaveGlobalInstruction writes the shared instruction file. It lives outside
// any conversation repository and is not versioned.
func (r *Repository) SaveGlobalInstruction(content string) error {
	if err := os.WriteFile(r.globalInstructionPath, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, "could not write global instruction")
	}
	return nil
}

// EffectiveInstruction concatenates the global and conversation-scoped
// instructions, global first, skipping empty halves. A conversation without
// an instruction file gets an empty one, committed, so operators find a file
// to edit inside the repository.
func (r *Repository) EffectiveInstruction(conversationID int64) (string, error) {
	global, err := r.GlobalInstruction()
	if err != nil {
		return "", err
	}

	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return "", err
	}

	path := r.InstructionPath(conversationID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
			return "", errors.Wrapf(err, "could not initialize instruction for conversation %d", conversationID)
		}
		if _, err := r.store.Commit(conversationID, "Initialize empty conversation instruction"); err != nil {
			return "", err
		}
		data = []byte{}
	} else if err != nil {
		return "", errors.Wrapf(err, "could not read instruction for conversation %d", conversationID)
	}

	parts := []string{}
	if global != "" {
		parts = append(parts, global)
	}
	if len(data) > 0 {
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n"), nil
}
