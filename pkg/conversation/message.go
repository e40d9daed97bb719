package conversation

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Part is a single content element of a message, as consumed by an LLM
// client: either a text fragment or an image.
type Part interface {
	ContentType() ContentType
	String() string
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ValidRole reports whether s is one of the two message roles.
func ValidRole(s string) bool {
	return Role(s) == RoleUser || Role(s) == RoleModel
}

type TextPart struct {
	Text string `json:"text"`
}

func (t *TextPart) ContentType() ContentType {
	return ContentTypeText
}

func (t *TextPart) String() string {
	return t.Text
}

var _ Part = (*TextPart)(nil)

// ImagePart references an attachment inside a conversation repository. Path
// is relative to the repository root; Data is only populated once the part
// has been hydrated from the attachment store.
type ImagePart struct {
	Path      string `json:"path"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"-"`
}

func (i *ImagePart) ContentType() ContentType {
	return ContentTypeImage
}

func (i *ImagePart) String() string {
	return fmt.Sprintf("ImagePart{Path: %s, MediaType: %s, Bytes: %d}", i.Path, i.MediaType, len(i.Data))
}

// Hydrated reports whether the image bytes have been loaded.
func (i *ImagePart) Hydrated() bool {
	return len(i.Data) > 0
}

var _ Part = (*ImagePart)(nil)

var mimeToExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var extToMime = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ExtensionForMime maps a MIME type to a file extension, falling back to a
// generic binary extension for unknown types.
func ExtensionForMime(mimeType string) string {
	if ext, ok := mimeToExt[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".bin"
}

// MimeForPath derives a MIME type from a file path's extension.
func MimeForPath(path string) string {
	if mime, ok := extToMime[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Message is a single turn in a conversation: a role plus an ordered list of
// content parts (images before text, in the order they were produced).
type Message struct {
	ID    uuid.UUID `json:"id"`
	Role  Role      `json:"role"`
	Time  time.Time `json:"time"`
	Parts []Part    `json:"parts"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func NewMessage(role Role, parts []Part, options ...MessageOption) *Message {
	ret := &Message{
		ID:    uuid.New(),
		Role:  role,
		Time:  time.Now().UTC(),
		Parts: parts,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewTextMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(role, []Part{&TextPart{Text: text}}, options...)
}

// Text concatenates the message's text parts with newline separators.
func (m *Message) Text() string {
	texts := []string{}
	for _, part := range m.Parts {
		if t, ok := part.(*TextPart); ok {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Images returns the message's image parts in order.
func (m *Message) Images() []*ImagePart {
	images := []*ImagePart{}
	for _, part := range m.Parts {
		if i, ok := part.(*ImagePart); ok {
			images = append(images, i)
		}
	}
	return images
}

type Conversation []*Message

// View renders the conversation as role-tagged lines, for previews and logs.
func (c Conversation) View() string {
	var sb strings.Builder
	for _, m := range c {
		sb.WriteString(fmt.Sprintf("[%s]: %s\n", m.Role, m.Text()))
	}
	return sb.String()
}
