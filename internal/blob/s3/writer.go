package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// Writer uploads objects to the client's bucket. Small artifacts go through
// a plain PutObject; larger streams can use PutMultipart.
type Writer struct {
	client   *Client
	uploader *manager.Uploader
}

var _ domain.BlobWriter = (*Writer)(nil)

// NewWriter creates a Writer bound to the client's default bucket.
func NewWriter(client *Client) *Writer {
	return &Writer{
		client:   client,
		uploader: manager.NewUploader(client.S3()),
	}
}

// Put uploads data under the given object path.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.client.S3().PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.Bucket()),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads data using the SDK's concurrent multipart uploader,
// suited to equity curves and trade ledgers from long replays.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.Bucket()),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", path, err)
	}
	return nil
}
