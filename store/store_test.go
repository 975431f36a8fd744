package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
)

var testArtifact = hillshade.Artifact{
	Key:          "terrain-grey-hills/12/654/1583@2x.png",
	Data:         []byte("png bytes"),
	ContentType:  "image/png",
	CacheControl: "public, max-age=2592000",
	StorageClass: "REDUCED_REDUNDANCY",
	Metadata:     map[string]string{"Surrogate-Key": "terrain-grey-hills terrain-grey-hills/z12"},
}

// exerciseCache checks the miss, put, hit and overwrite cycle of a backend.
func exerciseCache(t *testing.T, c hillshade.TileCache) {
	t.Helper()
	ctx := context.Background()

	if res := c.Lookup(ctx, testArtifact.Key); res.Status != hillshade.NotFound {
		t.Fatalf("Lookup() before put = %v (%v), want not found", res.Status, res.Err)
	}

	if err := c.Put(ctx, testArtifact); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	res := c.Lookup(ctx, testArtifact.Key)
	if res.Status != hillshade.Found || !bytes.Equal(res.Data, testArtifact.Data) {
		t.Fatalf("Lookup() after put = %v %q, want found %q", res.Status, res.Data, testArtifact.Data)
	}

	updated := testArtifact
	updated.Data = []byte("newer bytes")
	if err := c.Put(ctx, updated); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	if res := c.Lookup(ctx, testArtifact.Key); !bytes.Equal(res.Data, updated.Data) {
		t.Errorf("Lookup() after overwrite = %q, want %q", res.Data, updated.Data)
	}

	if c.Location(testArtifact.Key) == "" {
		t.Errorf("Location() is empty")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseCache(t, m)

	a, ok := m.Get(testArtifact.Key)
	if !ok || a.ContentType != "image/png" {
		t.Errorf("Get() = %+v, %v", a, ok)
	}
}

func TestDisk(t *testing.T) {
	root := t.TempDir()
	d, err := NewDisk(root)
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	exerciseCache(t, d)

	want := "file://" + filepath.ToSlash(filepath.Join(root, "terrain-grey-hills", "12", "654", "1583@2x.png"))
	if got := d.Location(testArtifact.Key); got != want {
		t.Errorf("Location() = %s, want %s", got, want)
	}

	escaping := hillshade.Artifact{Key: "../outside.png", Data: []byte("x")}
	if err := d.Put(context.Background(), escaping); err == nil {
		t.Errorf("Put() accepted a key outside the root")
	}
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"), logger.Nop())
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer s.Close()

	exerciseCache(t, s)

	md, err := s.Metadata(context.Background(), testArtifact.Key)
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if !reflect.DeepEqual(md, testArtifact.Metadata) {
		t.Errorf("Metadata() = %v, want %v", md, testArtifact.Metadata)
	}
}

func TestRedis_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisWithClient(client, RedisConfig{Addr: "127.0.0.1:1"})
	defer c.Close()

	res := c.Lookup(context.Background(), "1/0/0.tif")
	if res.Status != hillshade.LookupFailed || !errors.Is(res.Err, hillshade.ErrCacheIO) {
		t.Errorf("Lookup() = %v (%v), want a cache i/o error", res.Status, res.Err)
	}

	if err := c.Put(context.Background(), testArtifact); err == nil {
		t.Errorf("Put() succeeded against an unreachable server")
	}

	if got := c.Location("1/0/0.tif"); got != "redis://127.0.0.1:1/hillshade:1/0/0.tif" {
		t.Errorf("Location() = %s", got)
	}
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string]*s3.PutObjectInput
	bodies  map[string][]byte
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]*s3.PutObjectInput{}, bodies: map[string][]byte{}}
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.bodies[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Key)
	f.objects[key] = in
	f.bodies[key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	client := newFakeS3()
	c := NewS3(client, "hillshades.openterrain.org", "")
	exerciseCache(t, c)

	in := client.objects[testArtifact.Key]
	if aws.StringValue(in.ACL) != "public-read" ||
		aws.StringValue(in.CacheControl) != "public, max-age=2592000" ||
		aws.StringValue(in.StorageClass) != "REDUCED_REDUNDANCY" ||
		aws.StringValue(in.ContentType) != "image/png" {
		t.Errorf("PutObject input = %v", in)
	}
	if aws.StringValue(in.Metadata["Surrogate-Key"]) != "terrain-grey-hills terrain-grey-hills/z12" {
		t.Errorf("PutObject metadata = %v", in.Metadata)
	}

	want := "http://hillshades.openterrain.org.s3.amazonaws.com/terrain-grey-hills/12/654/1583@2x.png"
	if got := c.Location(testArtifact.Key); got != want {
		t.Errorf("Location() = %s, want %s", got, want)
	}
}

func TestS3_LookupError(t *testing.T) {
	client := newFakeS3()
	client.getErr = awserr.New("AccessDenied", "Access Denied", nil)
	c := NewS3(client, "bucket", "")

	res := c.Lookup(context.Background(), "1/0/0.tif")
	if res.Status != hillshade.LookupFailed || !strings.Contains(res.Err.Error(), "AccessDenied") {
		t.Errorf("Lookup() = %v (%v), want a failed lookup", res.Status, res.Err)
	}
}
