package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/tilezen/go-hillshades/hillshade"
)

// S3 publishes artifacts as public objects in a bucket.
type S3 struct {
	client s3iface.S3API
	bucket string
	acl    string
}

var _ hillshade.TileCache = (*S3)(nil)

// NewS3Session builds a session from the shared AWS configuration.
func NewS3Session(region string) (*session.Session, error) {
	opts := session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}
	if region != "" {
		opts.Config = aws.Config{Region: aws.String(region)}
	}
	return session.NewSessionWithOptions(opts)
}

func NewS3(client s3iface.S3API, bucket, acl string) *S3 {
	if acl == "" {
		acl = s3.ObjectCannedACLPublicRead
	}
	return &S3{
		client: client,
		bucket: bucket,
		acl:    acl,
	}
}

func (c *S3) Lookup(ctx context.Context, key string) hillshade.LookupResult {
	defer observe("s3", "lookup", time.Now())

	out, err := c.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return hillshade.Miss()
		}
		return hillshade.LookupError(fmt.Errorf("s3 get %s: %w", key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return hillshade.LookupError(fmt.Errorf("s3 read %s: %w", key, err))
	}
	return hillshade.Hit(data)
}

func (c *S3) Put(ctx context.Context, a hillshade.Artifact) error {
	defer observe("s3", "put", time.Now())

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(a.Key),
		Body:        bytes.NewReader(a.Data),
		ACL:         aws.String(c.acl),
		ContentType: aws.String(a.ContentType),
	}
	if a.CacheControl != "" {
		input.CacheControl = aws.String(a.CacheControl)
	}
	if a.StorageClass != "" {
		input.StorageClass = aws.String(a.StorageClass)
	}
	if len(a.Metadata) > 0 {
		input.Metadata = aws.StringMap(a.Metadata)
	}

	_, err := c.client.PutObjectWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", a.Key, err)
	}
	return nil
}

func (c *S3) Location(key string) string {
	return fmt.Sprintf("http://%s.s3.amazonaws.com/%s", c.bucket, key)
}
