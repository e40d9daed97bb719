package conversation

import (
	"time"

	"github.com/pkg/errors"
)

// Record is the durable JSON form of a message:
// {role, content, timestamp, images?}. Image bytes are never stored inline;
// Images holds paths relative to the conversation repository root.
type Record struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Images    []string  `json:"images,omitempty"`
}

// AttachmentSaver persists attachment bytes and returns a path relative to
// the conversation repository root.
type AttachmentSaver interface {
	SaveAttachment(data []byte, mimeType string) (string, error)
}

// AttachmentLoader resolves a relative attachment path back to its bytes and
// MIME type. It returns ErrAttachmentNotFound when the path does not resolve.
type AttachmentLoader interface {
	LoadAttachment(relativePath string) ([]byte, string, error)
}

var ErrAttachmentNotFound = errors.New("attachment not found")

// ToRecords flattens a conversation into durable records. Text parts are
// joined with newlines into a single content string; image parts with bytes
// are persisted through saver and recorded as relative paths, image parts
// that already carry a path are recorded as-is.
func ToRecords(conv Conversation, saver AttachmentSaver) ([]Record, error) {
	records := make([]Record, 0, len(conv))
	for _, msg := range conv {
		record := Record{
			Role:      msg.Role,
			Content:   msg.Text(),
			Timestamp: msg.Time.UTC(),
		}
		if record.Timestamp.IsZero() {
			record.Timestamp = time.Now().UTC()
		}

		for _, image := range msg.Images() {
			if image.Path != "" {
				record.Images = append(record.Images, image.Path)
				continue
			}
			if saver == nil {
				return nil, errors.New("conversation contains unsaved attachments but no attachment saver was provided")
			}
			path, err := saver.SaveAttachment(image.Data, image.MediaType)
			if err != nil {
				return nil, errors.Wrap(err, "could not save attachment")
			}
			record.Images = append(record.Images, path)
		}

		records = append(records, record)
	}
	return records, nil
}

// FromRecords reconstructs the in-memory conversation from durable records.
// Image parts come first, carrying only their relative paths; call
// HydrateImages to resolve bytes when the conversation is replayed into an
// LLM client.
func FromRecords(records []Record) Conversation {
	conv := make(Conversation, 0, len(records))
	for _, record := range records {
		parts := make([]Part, 0, len(record.Images)+1)
		for _, path := range record.Images {
			parts = append(parts, &ImagePart{
				Path:      path,
				MediaType: MimeForPath(path),
			})
		}
		parts = append(parts, &TextPart{Text: record.Content})
		conv = append(conv, NewMessage(record.Role, parts, WithTime(record.Timestamp)))
	}
	return conv
}

// HydrateImages resolves attachment bytes for every image part that has not
// been loaded yet. Missing attachments are skipped: a pruned file must not
// make the whole conversation unreplayable.
func HydrateImages(conv Conversation, loader AttachmentLoader) error {
	for _, msg := range conv {
		for _, image := range msg.Images() {
			if image.Hydrated() || image.Path == "" {
				continue
			}
			data, mimeType, err := loader.LoadAttachment(image.Path)
			if errors.Is(err, ErrAttachmentNotFound) {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "could not load attachment %s", image.Path)
			}
			image.Data = data
			image.MediaType = mimeType
		}
	}
	return nil
}
