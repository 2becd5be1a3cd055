package syllabus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pulsetrack/internal/domain"
)

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key string, file File) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://files.example/" + key, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, File) ([]domain.ExtractedItem, error) {
	return nil, errors.New("unreadable pdf")
}

func TestCannedExtractor(t *testing.T) {
	ctx := context.Background()
	first, err := CannedExtractor{}.Extract(ctx, File{Name: "bio.pdf"})
	require.NoError(t, err)
	second, err := CannedExtractor{}.Extract(ctx, File{Name: "bio.pdf"})
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, domain.ExtractedAssignment, first[0].Type)
	assert.Equal(t, "23:59", first[0].Time)
	assert.True(t, first[1].Ambiguous)
	assert.Equal(t, "Listed as TBD in syllabus", first[1].Notes)
	assert.Equal(t, domain.ExtractedOfficeHours, first[2].Type)
	assert.NotEqual(t, first[0].ID, second[0].ID, "IDs are fresh per call")
}

func TestProcessWithUploader(t *testing.T) {
	up := &fakeUploader{}
	upload, err := Process(context.Background(), CannedExtractor{}, up, File{Name: "docs/bio.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)

	assert.Equal(t, "docs/bio.pdf", upload.FileName)
	require.Len(t, up.keys, 1)
	assert.Equal(t, "syllabi/"+upload.ID+"/bio.pdf", up.keys[0])
	assert.Equal(t, "https://files.example/"+up.keys[0], upload.ObjectURL)
	assert.Len(t, upload.ExtractedItems, 3)
}

func TestProcessWithoutUploader(t *testing.T) {
	upload, err := Process(context.Background(), CannedExtractor{}, nil, File{Name: "bio.pdf"})
	require.NoError(t, err)
	assert.Empty(t, upload.ObjectURL)
	assert.NotEmpty(t, upload.ID)
}

func TestProcessErrors(t *testing.T) {
	_, err := Process(context.Background(), CannedExtractor{}, &fakeUploader{err: errors.New("quota")}, File{Name: "bio.pdf"})
	assert.ErrorContains(t, err, "upload bio.pdf: quota")

	_, err = Process(context.Background(), failingExtractor{}, nil, File{Name: "bio.pdf"})
	assert.ErrorContains(t, err, "extract bio.pdf: unreadable pdf")
}

func TestNewB2UploaderNeedsCredentials(t *testing.T) {
	_, err := NewB2Uploader(context.Background(), "", "", "")
	assert.ErrorContains(t, err, "not configured")
}
