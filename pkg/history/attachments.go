package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/pkg/errors"
)

// SaveAttachment writes attachment bytes under the conversation's files
// directory and returns the path relative to the repository root, so it can
// be embedded in message records and later resolved against either the live
// working tree or an export bundle.
func (r *Repository) SaveAttachment(conversationID int64, data []byte, mimeType string) (string, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if _, err := r.store.Ensure(conversationID); err != nil {
		return "", err
	}
	dir := filepath.Join(r.store.RepoPath(conversationID), attachmentsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "could not create attachments directory")
	}

	ext := conversation.ExtensionForMime(mimeType)
	base := "img_" + time.Now().Format("20060102_150405")

	// Probe for a free counter suffix so rapid saves within one second
	// cannot collide.
	var filename string
	for counter := 1; ; counter++ {
		filename = fmt.Sprintf("%s_%03d%s", base, counter, ext)
		if _, err := os.Stat(filepath.Join(dir, filename)); os.IsNotExist(err) {
			break
		}
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", errors.Wrap(err, "could not write attachment")
	}
	return filepath.ToSlash(filepath.Join(attachmentsDir, filename)), nil
}

// LoadAttachment resolves a relative attachment path to its bytes, deriving
// the MIME type from the file extension. Returns
// conversation.ErrAttachmentNotFound when the path does not resolve.
func (r *Repository) LoadAttachment(conversationID int64, relativePath string) ([]byte, string, error) {
	path := filepath.Join(r.store.RepoPath(conversationID), filepath.FromSlash(relativePath))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", conversation.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "could not read attachment %s", relativePath)
	}
	return data, conversation.MimeForPath(relativePath), nil
}

// Attachments binds the repository to one conversation, satisfying the
// serialization adapter's saver and loader interfaces.
type Attachments struct {
	repo           *Repository
	conversationID int64
}

func (r *Repository) Attachments(conversationID int64) *Attachments {
	return &Attachments{repo: r, conversationID: conversationID}
}

func (a *Attachments) SaveAttachment(data []byte, mimeType string) (string, error) {
	return a.repo.SaveAttachment(a.conversationID, data, mimeType)
}

func (a *Attachments) LoadAttachment(relativePath string) ([]byte, string, error) {
	return a.repo.LoadAttachment(a.conversationID, relativePath)
}

var _ conversation.AttachmentSaver = (*Attachments)(nil)
var _ conversation.AttachmentLoader = (*Attachments)(nil)
