package gitstore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrBranchExists    = errors.New("branch already exists")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrProtectedBranch = errors.New("branch is protected")
	ErrCurrentBranch   = errors.New("branch is currently checked out")
	ErrOperationFailed = errors.New("store operation failed")
)

// BranchError reports a branch validation failure together with the branch
// name that triggered it.
type BranchError struct {
	Branch string
	Kind   error
}

func (e *BranchError) Error() string {
	if e == nil {
		return ErrBranchNotFound.Error()
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.Branch)
}

func (e *BranchError) Is(target error) bool { return target == e.Kind }

// OperationError reports a failed git invocation, carrying the command line
// and the captured diagnostic output.
type OperationError struct {
	Args   []string
	Output string
}

func (e *OperationError) Error() string {
	if e == nil {
		return ErrOperationFailed.Error()
	}
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	}
	return fmt.Sprintf("git %s failed: %s", strings.Join(e.Args, " "), out)
}

func (e *OperationError) Is(target error) bool { return target == ErrOperationFailed }
