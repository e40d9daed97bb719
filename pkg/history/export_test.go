package history

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/go-go-golems/chronicle/pkg/conversation"
	"github.com/stretchr/testify/require"
)

func TestExportWithoutAttachmentsIsMarkdown(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Save(42, []conversation.Record{
		record(conversation.RoleUser, "hi"),
		record(conversation.RoleModel, "hello"),
	}, "model-a", true))

	bundle, err := repo.Export(42, "mybundle")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.False(t, bundle.Zipped)
	require.Equal(t, "mybundle.md", bundle.Filename)

	markdown := string(bundle.Data)
	require.Contains(t, markdown, "# Conversation Export")
	require.Contains(t, markdown, "- **Conversation ID**: 42")
	require.Contains(t, markdown, "- **Branch**: main")
	require.Contains(t, markdown, "- **Model**: model-a")
	require.Contains(t, markdown, "### User")
	require.Contains(t, markdown, "hello")
}

func TestExportEmptyConversation(t *testing.T) {
	repo := newTestRepository(t)

	bundle, err := repo.Export(1, "")
	require.NoError(t, err)
	require.Nil(t, bundle)

	require.NoError(t, repo.Save(1, []conversation.Record{record(conversation.RoleUser, "x")}, "m", true))
	require.NoError(t, repo.Clear(1, true))
	bundle, err = repo.Export(1, "")
	require.NoError(t, err)
	require.Nil(t, bundle)
}

func TestExportWithAttachmentsIsZip(t *testing.T) {
	repo := newTestRepository(t)

	imagePath, err := repo.SaveAttachment(1, []byte{0x89, 0x50}, "image/png")
	require.NoError(t, err)

	msg := record(conversation.RoleUser, "see attached")
	msg.Images = []string{imagePath}
	require.NoError(t, repo.Save(1, []conversation.Record{msg}, "m", true))

	bundle, err := repo.Export(1, "withimages")
	require.NoError(t, err)
	require.True(t, bundle.Zipped)
	require.Equal(t, "withimages.zip", bundle.Filename)

	entries := readZip(t, bundle.Data)
	require.Contains(t, entries, "conversation.md")
	require.Contains(t, entries, imagePath)
	require.Equal(t, []byte{0x89, 0x50}, entries[imagePath])
	require.Contains(t, string(entries["conversation.md"]), "![image]("+imagePath+")")
}

func TestExportBundlesThoughtSignature(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Save(1, []conversation.Record{record(conversation.RoleUser, "x")}, "m", true))
	require.NoError(t, repo.SaveThoughtSignature(1, []byte("opaque")))

	bundle, err := repo.Export(1, "withsig")
	require.NoError(t, err)
	require.True(t, bundle.Zipped)

	entries := readZip(t, bundle.Data)
	require.Contains(t, entries, "thought_signature.txt")
	// Stored base64-encoded.
	require.Equal(t, "b3BhcXVl", string(entries["thought_signature.txt"]))
}

func TestExportGeneratesDefaultName(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Save(9, []conversation.Record{record(conversation.RoleUser, "x")}, "m", true))

	bundle, err := repo.Export(9, "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(bundle.Filename, "9_main_"))
	require.True(t, strings.HasSuffix(bundle.Filename, ".md"))
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = content
	}
	return entries
}
