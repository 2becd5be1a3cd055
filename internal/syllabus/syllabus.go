// Package syllabus turns an uploaded syllabus file into dated items that can
// be imported as assignments.
package syllabus

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// File is a syllabus as uploaded by the student
type File struct {
	Name string
	Data []byte
}

// Extractor finds dated items in a syllabus
type Extractor interface {
	Extract(ctx context.Context, f File) ([]domain.ExtractedItem, error)
}

// Uploader stores the raw file and returns a URL for it
type Uploader interface {
	Upload(ctx context.Context, key string, f File) (string, error)
}

// CannedExtractor returns the same three sample items for every file.
// It stands in until a real document parser is configured.
type CannedExtractor struct{}

// Extract returns a reading response, an exam with an undecided date and an
// office-hours slot, each with a fresh ID.
func (CannedExtractor) Extract(context.Context, File) ([]domain.ExtractedItem, error) {
	return []domain.ExtractedItem{
		{
			ID:    domain.NewID(),
			Type:  domain.ExtractedAssignment,
			Title: "Reading Response",
			Date:  "2026-02-20",
			Time:  "23:59",
		},
		{
			ID:        domain.NewID(),
			Type:      domain.ExtractedExam,
			Title:     "Unit Exam",
			Date:      "2026-03-08",
			Ambiguous: true,
			Notes:     "Listed as TBD in syllabus",
		},
		{
			ID:    domain.NewID(),
			Type:  domain.ExtractedOfficeHours,
			Title: "Office Hours",
			Date:  "2026-02-13",
			Time:  "14:00",
		},
	}, nil
}

// Process uploads f when an uploader is given, then extracts its items.
// The returned upload is ready for store.AddSyllabusUpload.
func Process(ctx context.Context, ex Extractor, up Uploader, f File) (domain.SyllabusUpload, error) {
	upload := domain.SyllabusUpload{
		ID:       domain.NewID(),
		FileName: f.Name,
	}

	if up != nil {
		url, err := up.Upload(ctx, ObjectKey(upload.ID, f.Name), f)
		if err != nil {
			return upload, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		upload.ObjectURL = url
	}

	items, err := ex.Extract(ctx, f)
	if err != nil {
		return upload, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if items == nil {
		items = []domain.ExtractedItem{}
	}
	upload.ExtractedItems = items
	return upload, nil
}

// ObjectKey is where an upload's file is stored.
func ObjectKey(uploadID, fileName string) string {
	return path.Join("syllabi", uploadID, path.Base(fileName))
}

func (f File) reader() *bytes.Reader {
	return bytes.NewReader(f.Data)
}
