package aws

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore wraps S3 for product images, verification documents and AR models.
type ObjectStore struct {
	client        *s3.Client
	uploader      *manager.Uploader
	presigner     *s3.PresignClient
	bucket        string
	publicBaseURL string
}

// NewObjectStore creates an S3 backed store. publicBaseURL (CDN or bucket website) prefixes object
// keys in returned URLs; when empty the virtual-hosted S3 URL is used.
func NewObjectStore(cfg sdkaws.Config, bucket, publicBaseURL string) *ObjectStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// LocalStack only understands path-style addressing
		o.UsePathStyle = CustomEndpoint() != ""
	})
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &ObjectStore{
		client:        client,
		uploader:      manager.NewUploader(client),
		presigner:     s3.NewPresignClient(client),
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// URL returns the public URL of key.
func (o *ObjectStore) URL(key string) string {
	return o.publicBaseURL + "/" + key
}

// Upload streams body to key and returns its public URL.
func (o *ObjectStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := o.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &o.bucket,
		Key:         &key,
		Body:        body,
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s failed: %w", key, err)
	}
	return o.URL(key), nil
}

// Delete removes key. Deleting a missing key is not an error in S3.
func (o *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &o.bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("s3 delete %s failed: %w", key, err)
	}
	return nil
}

// List returns objects under prefix.
func (o *ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: &o.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s failed: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, toObjectInfo(obj, o.URL(sdkaws.ToString(obj.Key))))
		}
	}
	return out, nil
}

func toObjectInfo(obj types.Object, url string) ObjectInfo {
	info := ObjectInfo{Key: sdkaws.ToString(obj.Key), URL: url, Size: sdkaws.ToInt64(obj.Size)}
	if obj.LastModified != nil {
		info.LastModified = *obj.LastModified
	}
	return info
}

// PresignPut generates a presigned PUT URL plus the headers the client must send with it.
func (o *ObjectStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error) {
	input := &s3.PutObjectInput{Bucket: &o.bucket, Key: &key}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}
	presigned, err := o.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return presigned.URL, headers, nil
}

// PresignGet generates a short lived download URL.
func (o *ObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presigned, err := o.presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &o.bucket, Key: &key}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}
