package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// stubFileStore records uploads and hands back fabricated remote handles.
type stubFileStore struct {
	uploads int
}

func (s *stubFileStore) Upload(_ context.Context, _ []byte, displayName, mimeType string) (*models.RemoteFile, error) {
	s.uploads++
	return &models.RemoteFile{
		URI:      fmt.Sprintf("files/stub-%d", s.uploads),
		MIMEType: mimeType,
		Name:     displayName,
	}, nil
}

func textSource(name, content string) models.Source {
	return models.Source{ID: name, Type: models.SourceText, Name: name, Content: content}
}

func TestPipelineIngestPreservesSourceOrder(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)
	sources := []models.Source{
		textSource("First", "alpha"),
		textSource("Second", "beta"),
		textSource("Third", "gamma"),
	}

	material, err := p.Ingest(context.Background(), sources, false)
	require.NoError(t, err)

	require.Len(t, material.ContextParts, 3)
	assert.Contains(t, material.ContextParts[0].Text, "=== Source: First (text) ===")
	assert.Contains(t, material.ContextParts[1].Text, "=== Source: Second (text) ===")
	assert.Contains(t, material.ContextParts[2].Text, "=== Source: Third (text) ===")

	require.Len(t, material.Sources, 3)
	assert.Equal(t, "First", material.Sources[0].Name)
	assert.Equal(t, 3, material.Stats.SourceCount)
	assert.True(t, material.Stats.IsMultimodal)
	assert.Empty(t, material.Warnings)
}

func TestPipelineIngestIsDeterministic(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)
	sources := []models.Source{
		textSource("A", "alpha"),
		textSource("B", "beta"),
	}

	first, err := p.Ingest(context.Background(), sources, false)
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), sources, false)
	require.NoError(t, err)

	assert.Equal(t, first.ContextParts, second.ContextParts)
	assert.Equal(t, first.Signature, second.Signature)
}

func TestPipelineIngestFailedSourceIsNonFatal(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)
	sources := []models.Source{
		textSource("Good", "alpha"),
		{ID: "bad", Type: models.SourceYouTube, Name: "Bad Video", URL: "https://example.com/not-youtube"},
		textSource("Also Good", "beta"),
	}

	material, err := p.Ingest(context.Background(), sources, false)
	require.NoError(t, err)

	// The failed source keeps its slot as an inline notice; the batch
	// continues around it.
	require.Len(t, material.ContextParts, 3)
	assert.Contains(t, material.ContextParts[1].Text, `[Source "Bad Video" could not be processed`)
	require.Len(t, material.Warnings, 1)
	assert.Equal(t, "Bad Video", material.Warnings[0].SourceName)

	// Only the two successful sources count as included.
	require.Len(t, material.Sources, 2)
	assert.Equal(t, "Good", material.Sources[0].Name)
	assert.Equal(t, "Also Good", material.Sources[1].Name)
	assert.Equal(t, 2, material.Stats.SourceCount)
}

func TestPipelineIngestNoSources(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)

	_, err := p.Ingest(context.Background(), nil, false)
	assert.Equal(t, core.KindNoSources, core.KindOf(err))

	// useDefaults without configured defaults still fails.
	_, err = p.Ingest(context.Background(), nil, true)
	assert.Equal(t, core.KindNoSources, core.KindOf(err))
}

func TestPipelineIngestDefaultsSubstituted(t *testing.T) {
	defaults := []models.Source{
		{ID: "dv", Type: models.SourceYouTube, Name: "Lecture Video 1", URL: "https://youtu.be/dQw4w9WgXcQ"},
	}
	p := NewPipeline(&stubFileStore{}, nil, nil, defaults, nil)

	material, err := p.Ingest(context.Background(), nil, true)
	require.NoError(t, err)

	require.Len(t, material.Sources, 1)
	assert.Equal(t, "Lecture Video 1", material.Sources[0].Name)
	// The signature reflects the empty explicit source list, not the
	// substituted defaults, so it stays comparable to notebook state.
	assert.Equal(t, models.SourceSignature(nil), material.Signature)
}

func TestPipelineYouTubeInstructionMentionsTimestamps(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)
	sources := []models.Source{
		{ID: "v", Type: models.SourceYouTube, Name: "Lecture", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
	}

	material, err := p.Ingest(context.Background(), sources, false)
	require.NoError(t, err)

	require.Len(t, material.ContextParts, 1)
	text := material.ContextParts[0].Text
	assert.Contains(t, text, "dQw4w9WgXcQ")
	assert.Contains(t, text, "MM:SS")
}

func TestExtractYouTubeVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=abc&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		got, err := ExtractYouTubeVideoID(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}

	for _, bad := range []string{"", "https://example.com/video", "https://youtu.be/short"} {
		_, err := ExtractYouTubeVideoID(bad)
		assert.Equal(t, core.KindInvalidURL, core.KindOf(err), bad)
	}
}

func TestExtractDriveFileID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://drive.google.com/file/d/1AbC_dEf-123/view?usp=sharing", "1AbC_dEf-123"},
		{"https://drive.google.com/open?id=1AbC_dEf-123", "1AbC_dEf-123"},
		{"https://drive.google.com/uc?export=download&id=1AbC_dEf-123", "1AbC_dEf-123"},
	}
	for _, tc := range cases {
		got, err := ExtractDriveFileID(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}

	_, err := ExtractDriveFileID("https://example.com/file")
	assert.Equal(t, core.KindInvalidURL, core.KindOf(err))
}

func TestProcessUploadText(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)

	src, err := p.ProcessUpload(context.Background(), "notes.txt", "text/plain", []byte("supply and demand"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceFile, src.Type)
	assert.Equal(t, "notes.txt", src.Name)
	assert.Equal(t, "supply and demand", src.Content)
	assert.Empty(t, src.FileURI)
}

func TestProcessUploadPDFUploadsToFileStore(t *testing.T) {
	store := &stubFileStore{}
	p := NewPipeline(store, nil, nil, nil, nil)

	src, err := p.ProcessUpload(context.Background(), "slides.pdf", "application/pdf", []byte("%PDF-1.7 fake"))
	require.NoError(t, err)

	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, "files/stub-1", src.FileURI)
	assert.Equal(t, "application/pdf", src.MIMEType)
	assert.Empty(t, src.Content)
}

func TestProcessUploadUnsupportedExtension(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)

	_, err := p.ProcessUpload(context.Background(), "song.mp3", "audio/mpeg", []byte{0x00})
	assert.Equal(t, core.KindUnsupportedType, core.KindOf(err))
}

func TestProcessUploadInvalidUTF8Text(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)

	_, err := p.ProcessUpload(context.Background(), "garbage.txt", "text/plain", []byte{0xff, 0xfe, 0xfd})
	assert.Equal(t, core.KindUnsupportedType, core.KindOf(err))
}

func TestExtractFileEmitsHeaderBeforeContent(t *testing.T) {
	p := NewPipeline(&stubFileStore{}, nil, nil, nil, nil)

	parts, err := p.extractFile(models.Source{
		Type:    models.SourceFile,
		Name:    "notes.txt",
		Content: "supply and demand",
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0].Text, "=== Source: notes.txt (file) ==="))
	assert.Equal(t, "supply and demand", parts[1].Text)

	parts, err = p.extractFile(models.Source{
		Type:     models.SourceFile,
		Name:     "slides.pdf",
		FileURI:  "files/abc",
		MIMEType: "application/pdf",
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.True(t, parts[1].IsFile())
	assert.Equal(t, "files/abc", parts[1].FileURI)
}
