package history

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExportBundle is a flat rendering of a conversation: a markdown document,
// bundled into a zip together with attachment files and the thought
// signature when either exists.
type ExportBundle struct {
	Filename string
	Data     []byte
	Zipped   bool
}

// Export renders the conversation's current branch to a bundle. Returns nil
// when the conversation has no messages. When name is empty a
// <id>_<branch>_<timestamp> name is generated.
func (r *Repository) Export(conversationID int64, name string) (*ExportBundle, error) {
	unlock := r.locks.Lock(conversationID)
	defer unlock()

	doc, err := r.loadDoc(conversationID)
	if err != nil {
		return nil, err
	}
	if doc == nil || len(doc.Messages) == 0 {
		return nil, nil
	}

	branch, err := r.store.CurrentBranch(conversationID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("%d_%s_%s", conversationID, branch, time.Now().Format("20060102150405"))
	}

	markdown := renderMarkdown(doc, conversationID, branch)

	signature, err := os.ReadFile(filepath.Join(r.store.RepoPath(conversationID), signatureFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "could not read thought signature for export")
	}

	hasImages := false
	for _, msg := range doc.Messages {
		if len(msg.Images) > 0 {
			hasImages = true
			break
		}
	}

	if !hasImages && len(signature) == 0 {
		return &ExportBundle{
			Filename: name + ".md",
			Data:     []byte(markdown),
		}, nil
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	w, err := zw.Create("conversation.md")
	if err != nil {
		return nil, errors.Wrap(err, "could not create export archive")
	}
	if _, err := w.Write([]byte(markdown)); err != nil {
		return nil, errors.Wrap(err, "could not write export markdown")
	}

	if len(signature) > 0 {
		w, err := zw.Create("thought_signature.txt")
		if err != nil {
			return nil, errors.Wrap(err, "could not create export archive")
		}
		encoded := base64.StdEncoding.EncodeToString(signature)
		if _, err := w.Write([]byte(encoded)); err != nil {
			return nil, errors.Wrap(err, "could not write thought signature")
		}
	}

	for _, msg := range doc.Messages {
		for _, imagePath := range msg.Images {
			data, _, err := r.LoadAttachment(conversationID, imagePath)
			if err != nil {
				// Pruned attachments are skipped; the markdown keeps
				// the reference.
				continue
			}
			w, err := zw.Create(imagePath)
			if err != nil {
				return nil, errors.Wrap(err, "could not create export archive")
			}
			if _, err := w.Write(data); err != nil {
				return nil, errors.Wrapf(err, "could not write attachment %s", imagePath)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "could not finalize export archive")
	}

	return &ExportBundle{
		Filename: name + ".zip",
		Data:     buf.Bytes(),
		Zipped:   true,
	}, nil
}

func renderMarkdown(doc *Document, conversationID int64, branch string) string {
	lines := []string{
		"# Conversation Export",
		"",
		fmt.Sprintf("- **Conversation ID**: %d", conversationID),
		fmt.Sprintf("- **Branch**: %s", branch),
		fmt.Sprintf("- **Model**: %s", modelOrNA(doc.Model)),
		fmt.Sprintf("- **Exported at**: %s", time.Now().Format("2006-01-02 15:04:05")),
		"",
		"---",
		"",
		"## Conversation",
		"",
	}

	for _, msg := range doc.Messages {
		role := titleRole(string(msg.Role))
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = msg.Timestamp.Format("2006-01-02 15:04:05")
		}
		lines = append(lines, fmt.Sprintf("### %s (%s)", role, timestamp), "")
		for _, imagePath := range msg.Images {
			lines = append(lines, fmt.Sprintf("![image](%s)", imagePath), "")
		}
		lines = append(lines, msg.Content, "")
	}

	return strings.Join(lines, "\n")
}

func titleRole(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func modelOrNA(model string) string {
	if model == "" {
		return "N/A"
	}
	return model
}
