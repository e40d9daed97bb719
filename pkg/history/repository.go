package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/go-go-golems/chronicle/pkg/history/gitstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	conversationFile = "conversation.json"
	attachmentsDir   = "files"
	instructionFile  = "instruction.md"
	signatureFile    = "thought_signature.bin"
)

// Document is the durable conversation file:
// {conversation_id, model, created_at, updated_at, messages}.
type Document struct {
	ConversationID int64                 `json:"conversation_id"`
	Model          string                `json:"model"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Messages       []conversation.Record `json:"messages"`
}

// Repository reads and writes conversation message logs as domain objects,
// delegating durability and versioning to a per-conversation snapshot store.
// All operations on one conversation are serialized through a lock table.
type Repository struct {
	store                 *gitstore.Store
	locks                 *lockTable
	globalInstructionPath string
}

type RepositoryOption func(*Repository)

// WithGlobalInstructionPath overrides where the instruction shared by all
// conversations is stored. The default is instructions.md next to the base
// directory.
func WithGlobalInstructionPath(path string) RepositoryOption {
	return func(r *Repository) {
		r.globalInstructionPath = path
	}
}

func NewRepository(baseDir string, options ...RepositoryOption) (*Repository, error) {
	store, err := gitstore.New(baseDir)
	if err != nil {
		return nil, err
	}

	ret := &Repository{
		store:                 store,
		locks:                 newLockTable(),
		globalInstructionPath: filepath.Join(filepath.Dir(store.BaseDir()), "instructions.md"),
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

// Store exposes the underlying snapshot store for commit and log access.
func (r *Repository) Store() *gitstore.Store {
	return r.store
}

// BaseDir returns the directory holding all conversation repositories.
func (r *Repository) BaseDir() string {
	return r.store.BaseDir()
}

func (r *Repository) conversationPath(conversationID int64) string {
	return filepath.Join(r.store.RepoPath(conversationID), conversationFile)
}

// Load reads the current working-tree message file. Returns nil when the
// conversation has never been saved.
func (r *Repository) Load(conversationID int64) (*Document, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	return r.loadDoc(conversationID)
}

func (r *Repository) loadDoc(conversationID int64) (*Document, error) {
	data, err := os.ReadFile(r.conversationPath(conversationID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read conversation %d", conversationID)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "could not parse conversation %d", conversationID)
	}
	return doc, nil
}

// Save serializes the full message list to the working tree, fully replacing
// prior content, and commits when autoCommit is set. The creation timestamp
// of an existing conversation is preserved.
func (r *Repository) Save(conversationID int64, messages []conversation.Record, model string, autoCommit bool) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if err := r.saveDoc(conversationID, messages, model); err != nil {
		return err
	}
	if autoCommit {
		if _, err := r.store.Commit(conversationID, "Update conversation"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) saveDoc(conversationID int64, messages []conversation.Record, model string) error {
	if _, err := r.store.Ensure(conversationID); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := &Document{
		ConversationID: conversationID,
		Model:          model,
		CreatedAt:      now,
		UpdatedAt:      now,
		Messages:       messages,
	}
	if existing, err := r.loadDoc(conversationID); err != nil {
		return err
	} else if existing != nil {
		// An unchanged message list must not dirty the file, so a
		// follow-up commit can detect the no-op.
		if existing.Model == model && recordsEqual(existing.Messages, messages) {
			return nil
		}
		doc.CreatedAt = existing.CreatedAt
	}

	if err := r.writeDoc(conversationID, doc); err != nil {
		return err
	}

	log.Debug().
		Int64("conversation_id", conversationID).
		Int("messages", len(messages)).
		Str("model", model).
		Msg("saved conversation")
	return nil
}

func recordsEqual(a, b []conversation.Record) bool {
	if len(a) != len(b) {
		return false
	}
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}

func (r *Repository) writeDoc(conversationID int64, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "could not serialize conversation %d", conversationID)
	}
	if err := os.WriteFile(r.conversationPath(conversationID), data, 0o644); err != nil {
		return errors.Wrapf(err, "could not write conversation %d", conversationID)
	}
	return nil
}

// Clear overwrites the message list with an empty one, preserving the file's
// existence. A conversation that was never saved stays absent.
func (r *Repository) Clear(conversationID int64, autoCommit bool) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return err
	}
	if _, err := os.Stat(r.conversationPath(conversationID)); os.IsNotExist(err) {
		return nil
	}

	now := time.Now().UTC()
	doc := &Document{
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Messages:       []conversation.Record{},
	}
	if err := r.writeDoc(conversationID, doc); err != nil {
		return err
	}

	if autoCommit {
		if _, err := r.store.Commit(conversationID, "Clear conversation history"); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMessagePair removes the message at index (zero-based) together with
// its paired turn: a user message takes its model reply with it, a model
// message takes the user message that prompted it. Returns the number of
// messages removed.
func (r *Repository) DeleteMessagePair(conversationID int64, index int) (int, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	doc, err := r.loadDoc(conversationID)
	if err != nil {
		return 0, err
	}
	if doc == nil || index < 0 || index >= len(doc.Messages) {
		return 0, errors.Errorf("no message at index %d", index)
	}

	msgs := doc.Messages
	start, end := index, index+1
	switch msgs[index].Role {
	case conversation.RoleUser:
		if end < len(msgs) && msgs[end].Role == conversation.RoleModel {
			end++
		}
	case conversation.RoleModel:
		if start > 0 && msgs[start-1].Role == conversation.RoleUser {
			start--
		}
	}

	remaining := make([]conversation.Record, 0, len(msgs)-(end-start))
	remaining = append(remaining, msgs[:start]...)
	remaining = append(remaining, msgs[end:]...)

	if err := r.saveDoc(conversationID, remaining, doc.Model); err != nil {
		return 0, err
	}
	if _, err := r.store.Commit(conversationID, "Update conversation"); err != nil {
		return 0, err
	}
	return end - start, nil
}

// ListConversations returns the ids of all conversations with an initialized
// repository, in ascending order.
func (r *Repository) ListConversations() ([]int64, error) {
	entries, err := os.ReadDir(r.store.BaseDir())
	if err != nil {
		return nil, errors.Wrap(err, "could not scan base directory")
	}

	ids := []int64{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		if r.store.IsRepo(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LoadAll loads every conversation's current message list, used at startup
// to warm in-memory caches. Conversations load concurrently; they live in
// disjoint directories.
func (r *Repository) LoadAll() (map[int64][]conversation.Record, error) {
	ids, err := r.ListConversations()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := map[int64][]conversation.Record{}

	g := errgroup.Group{}
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			doc, err := r.Load(id)
			if err != nil {
				return err
			}
			if doc == nil {
				return nil
			}
			mu.Lock()
			result[id] = doc.Messages
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ThoughtSignature returns the conversation's opaque signature blob, or nil
// when none is stored.
func (r *Repository) ThoughtSignature(conversationID int64) ([]byte, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	data, err := os.ReadFile(filepath.Join(r.store.RepoPath(conversationID), signatureFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read thought signature for conversation %d", conversationID)
	}
	return data, nil
}

// SaveThoughtSignature stores the opaque signature blob inside the
// conversation's repository.
func (r *Repository) SaveThoughtSignature(conversationID int64, data []byte) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return err
	}
	path := filepath.Join(r.store.RepoPath(conversationID), signatureFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "could not write thought signature for conversation %d", conversationID)
	}
	_, err := r.store.Commit(conversationID, "Update thought signature")
	return err
}

// ClearThoughtSignature removes the signature blob if present.
func (r *Repository) ClearThoughtSignature(conversationID int64) error {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	path := filepath.Join(r.store.RepoPath(conversationID), signatureFile)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "could not remove thought signature for conversation %d", conversationID)
	}
	_, err := r.store.Commit(conversationID, "Clear thought signature")
	return err
}
