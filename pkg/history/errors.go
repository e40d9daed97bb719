package history

import (
	"github.com/go-go-golems/chronicle/pkg/history/gitstore"
	"github.com/pkg/errors"
)

// The branch and store errors are owned by the snapshot store; they are
// re-exported here so callers translating errors at the command boundary
// only need this package.
var (
	ErrBranchExists    = gitstore.ErrBranchExists
	ErrBranchNotFound  = gitstore.ErrBranchNotFound
	ErrProtectedBranch = gitstore.ErrProtectedBranch
	ErrCurrentBranch   = gitstore.ErrCurrentBranch
	ErrOperationFailed = gitstore.ErrOperationFailed

	ErrCannotMergeCurrent = errors.New("cannot merge a branch into itself")
)
