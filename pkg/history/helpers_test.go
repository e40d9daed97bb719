package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	return repo
}

func record(role conversation.Role, content string) conversation.Record {
	return conversation.Record{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func contents(records []conversation.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Content)
	}
	return out
}
