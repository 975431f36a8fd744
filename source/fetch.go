package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/tilezen/go-hillshades/hillshade"
)

const (
	httpUserAgent = "go-hillshades/1.0"
)

func expandTemplate(template string, z, x, y int) string {
	return strings.NewReplacer(
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{z}", strconv.Itoa(z)).Replace(template)
}

// HTTPFetcher fetches tiles from an XYZ URL template.
type HTTPFetcher struct {
	client      *http.Client
	urlTemplate string
}

func NewHTTPFetcher(urlTemplate string, timeout time.Duration) *HTTPFetcher {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 64,
		},
	}

	return &HTTPFetcher{
		client:      httpClient,
		urlTemplate: urlTemplate,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, z, x, y int) ([]byte, error) {
	url := expandTemplate(f.urlTemplate, z, x, y)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("User-Agent", httpUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", hillshade.ErrSourceUnavailable, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", hillshade.ErrNoData, url)
	default:
		return nil, fmt.Errorf("%w: GET %s: %s", hillshade.ErrSourceUnavailable, url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", hillshade.ErrSourceUnavailable, url, err)
	}
	return body, nil
}

// S3Fetcher fetches tiles from a bucket using a key template.
type S3Fetcher struct {
	client      s3iface.S3API
	bucket      string
	keyTemplate string
}

func NewS3Fetcher(client s3iface.S3API, bucket, keyTemplate string) *S3Fetcher {
	return &S3Fetcher{
		client:      client,
		bucket:      bucket,
		keyTemplate: keyTemplate,
	}
}

func (f *S3Fetcher) Fetch(ctx context.Context, z, x, y int) ([]byte, error) {
	key := expandTemplate(f.keyTemplate, z, x, y)

	out, err := f.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, fmt.Errorf("%w: s3://%s/%s", hillshade.ErrNoData, f.bucket, key)
		}
		return nil, fmt.Errorf("%w: s3://%s/%s: %w", hillshade.ErrSourceUnavailable, f.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %w", hillshade.ErrSourceUnavailable, f.bucket, key, err)
	}
	return body, nil
}

// DirFetcher reads tiles from a local directory using a path template.
type DirFetcher struct {
	root         string
	pathTemplate string
}

func NewDirFetcher(root, pathTemplate string) (*DirFetcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &DirFetcher{root: abs, pathTemplate: pathTemplate}, nil
}

func (f *DirFetcher) Fetch(ctx context.Context, z, x, y int) ([]byte, error) {
	path := filepath.Join(f.root, filepath.FromSlash(expandTemplate(f.pathTemplate, z, x, y)))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", hillshade.ErrNoData, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hillshade.ErrSourceUnavailable, err)
	}
	return data, nil
}
