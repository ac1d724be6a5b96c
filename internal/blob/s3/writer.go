package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// partSize is the upload part size (the S3 minimum, 5 MiB). Snapshots are
// usually a single part; the manager splits anything larger automatically.
const partSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter using an S3-compatible backend.
type Writer struct {
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a new Writer that uploads objects to the given client's
// configured bucket. Uploads go through the SDK upload manager, so bodies of
// any size work without the caller knowing their length up front.
func NewWriter(c *Client) *Writer {
	uploader := manager.NewUploader(c.S3(), func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	return &Writer{
		uploader: uploader,
		bucket:   c.Bucket(),
	}
}

// Put uploads data to the given path.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	}

	if _, err := w.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", path, err)
	}
	return nil
}
