package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeAttachments struct {
	files   map[string][]byte
	counter int
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{files: map[string][]byte{}}
}

func (f *fakeAttachments) SaveAttachment(data []byte, mimeType string) (string, error) {
	f.counter++
	path := fmt.Sprintf("files/img_%03d%s", f.counter, ExtensionForMime(mimeType))
	f.files[path] = data
	return path, nil
}

func (f *fakeAttachments) LoadAttachment(relativePath string) ([]byte, string, error) {
	data, ok := f.files[relativePath]
	if !ok {
		return nil, "", ErrAttachmentNotFound
	}
	return data, MimeForPath(relativePath), nil
}

func TestToRecordsJoinsTextParts(t *testing.T) {
	conv := Conversation{
		NewMessage(RoleUser, []Part{
			&TextPart{Text: "first"},
			&TextPart{Text: "second"},
		}),
	}

	records, err := ToRecords(conv, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, RoleUser, records[0].Role)
	require.Equal(t, "first\nsecond", records[0].Content)
	require.Empty(t, records[0].Images)
}

func TestToRecordsPersistsImageParts(t *testing.T) {
	attachments := newFakeAttachments()
	conv := Conversation{
		NewMessage(RoleUser, []Part{
			&ImagePart{Data: []byte{0x89, 0x50}, MediaType: "image/png"},
			&TextPart{Text: "look at this"},
		}),
	}

	records, err := ToRecords(conv, attachments)
	require.NoError(t, err)
	require.Equal(t, []string{"files/img_001.png"}, records[0].Images)
	require.Equal(t, "look at this", records[0].Content)
	require.Equal(t, []byte{0x89, 0x50}, attachments.files["files/img_001.png"])
}

func TestToRecordsKeepsExistingPaths(t *testing.T) {
	conv := Conversation{
		NewMessage(RoleModel, []Part{
			&ImagePart{Path: "files/img_already.png"},
			&TextPart{Text: "cached"},
		}),
	}

	records, err := ToRecords(conv, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"files/img_already.png"}, records[0].Images)
}

func TestToRecordsRejectsUnsavedImagesWithoutSaver(t *testing.T) {
	conv := Conversation{
		NewMessage(RoleUser, []Part{&ImagePart{Data: []byte{1}}}),
	}

	_, err := ToRecords(conv, nil)
	require.Error(t, err)
}

func TestFromRecordsPutsImagesBeforeText(t *testing.T) {
	ts := time.Date(2024, 1, 28, 12, 34, 56, 0, time.UTC)
	records := []Record{
		{Role: RoleModel, Content: "here you go", Timestamp: ts, Images: []string{"files/a.png", "files/b.jpg"}},
	}

	conv := FromRecords(records)
	require.Len(t, conv, 1)
	require.Equal(t, RoleModel, conv[0].Role)
	require.Equal(t, ts, conv[0].Time)
	require.Len(t, conv[0].Parts, 3)
	require.Equal(t, ContentTypeImage, conv[0].Parts[0].ContentType())
	require.Equal(t, ContentTypeImage, conv[0].Parts[1].ContentType())
	require.Equal(t, ContentTypeText, conv[0].Parts[2].ContentType())
	require.Equal(t, "image/jpeg", conv[0].Parts[1].(*ImagePart).MediaType)
}

func TestRoundTripPreservesContentAndRoles(t *testing.T) {
	attachments := newFakeAttachments()
	conv := Conversation{
		NewTextMessage(RoleUser, "hello"),
		NewMessage(RoleModel, []Part{
			&ImagePart{Data: []byte{1, 2, 3}, MediaType: "image/webp"},
			&TextPart{Text: "a picture"},
		}),
	}

	records, err := ToRecords(conv, attachments)
	require.NoError(t, err)

	restored := FromRecords(records)
	require.Len(t, restored, 2)
	for i := range conv {
		require.Equal(t, conv[i].Role, restored[i].Role)
		require.Equal(t, conv[i].Text(), restored[i].Text())
	}
}

func TestHydrateImagesResolvesBytes(t *testing.T) {
	attachments := newFakeAttachments()
	attachments.files["files/x.png"] = []byte{0xCA, 0xFE}

	conv := FromRecords([]Record{
		{Role: RoleUser, Content: "see image", Timestamp: time.Now(), Images: []string{"files/x.png"}},
	})
	require.False(t, conv[0].Images()[0].Hydrated())

	require.NoError(t, HydrateImages(conv, attachments))
	image := conv[0].Images()[0]
	require.True(t, image.Hydrated())
	require.Equal(t, []byte{0xCA, 0xFE}, image.Data)
	require.Equal(t, "image/png", image.MediaType)
}

func TestHydrateImagesSkipsMissingAttachments(t *testing.T) {
	conv := FromRecords([]Record{
		{Role: RoleUser, Content: "gone", Timestamp: time.Now(), Images: []string{"files/missing.png"}},
	})

	require.NoError(t, HydrateImages(conv, newFakeAttachments()))
	require.False(t, conv[0].Images()[0].Hydrated())
}
