package firebase

import (
	"context"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// BlobStore writes objects to a Firebase Storage bucket and hands back
// token-protected download URLs that stay valid until the token is revoked.
type BlobStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewBlobStore(bucket *gcs.BucketHandle, bucketName string) *BlobStore {
	return &BlobStore{bucket: bucket, bucketName: bucketName}
}

// Upload stores r at objectPath, replacing any previous object there
func (s *BlobStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	token := uuid.NewString()

	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", objectPath, err)
	}

	return DownloadURL(s.bucketName, objectPath, token), nil
}

// DownloadURL is the public Firebase Storage URL of an object with a download token
func DownloadURL(bucketName, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucketName, url.PathEscape(objectPath), url.QueryEscape(token))
}
