package history

import (
	"strings"
	"testing"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/stretchr/testify/require"
)

func TestSaveAttachmentRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	path, err := repo.SaveAttachment(1, []byte{0x89, 0x50, 0x4E, 0x47}, "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "files/img_"))
	require.True(t, strings.HasSuffix(path, ".png"))

	data, mimeType, err := repo.LoadAttachment(1, path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, data)
	require.Equal(t, "image/png", mimeType)
}

func TestSaveAttachmentGeneratesUniqueNames(t *testing.T) {
	repo := newTestRepository(t)

	first, err := repo.SaveAttachment(1, []byte{1}, "image/png")
	require.NoError(t, err)
	second, err := repo.SaveAttachment(1, []byte{2}, "image/png")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSaveAttachmentUnknownMimeFallsBack(t *testing.T) {
	repo := newTestRepository(t)

	path, err := repo.SaveAttachment(1, []byte{1, 2, 3}, "application/x-unknown")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, ".bin"))

	_, mimeType, err := repo.LoadAttachment(1, path)
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", mimeType)
}

func TestLoadAttachmentMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, _, err := repo.LoadAttachment(1, "files/never_saved.png")
	require.ErrorIs(t, err, conversation.ErrAttachmentNotFound)
}

func TestAttachmentsAdapter(t *testing.T) {
	repo := newTestRepository(t)
	attachments := repo.Attachments(7)

	conv := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, []conversation.Part{
			&conversation.ImagePart{Data: []byte{0xAA}, MediaType: "image/webp"},
			&conversation.TextPart{Text: "what is this"},
		}),
	}

	records, err := conversation.ToRecords(conv, attachments)
	require.NoError(t, err)
	require.Len(t, records[0].Images, 1)

	restored := conversation.FromRecords(records)
	require.NoError(t, conversation.HydrateImages(restored, attachments))
	image := restored[0].Images()[0]
	require.Equal(t, []byte{0xAA}, image.Data)
	require.Equal(t, "image/webp", image.MediaType)
}
