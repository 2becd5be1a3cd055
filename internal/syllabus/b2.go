package syllabus

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Uploader stores syllabus files in a Backblaze B2 bucket
type B2Uploader struct {
	bucket *b2.Bucket
}

// NewB2Uploader connects to B2. It fails when credentials are missing so
// callers can skip uploads.
func NewB2Uploader(ctx context.Context, keyID, appKey, bucketName string) (*B2Uploader, error) {
	if keyID == "" || appKey == "" || bucketName == "" {
		return nil, fmt.Errorf("B2 credentials not configured")
	}
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	return &B2Uploader{bucket: bucket}, nil
}

// Upload writes f under key and returns its download URL.
func (u *B2Uploader) Upload(ctx context.Context, key string, f File) (string, error) {
	obj := u.bucket.Object(key)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, f.reader()); err != nil {
		w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return obj.URL(), nil
}
