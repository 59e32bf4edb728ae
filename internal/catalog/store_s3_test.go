package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MiniCatalog/internal/catalog"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	ctypes  map[string]string
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, ctypes: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = b
	f.ctypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Backend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	b := catalog.NewS3Backend(client, "bucket", "catalog/products.jsonl")
	assert.Equal(t, "s3://bucket/catalog/products.jsonl", b.Target())
	require.NoError(t, b.Ping(ctx))

	s, st := catalog.Open(ctx, b)
	require.Equal(t, catalog.LoadAbsent, st.State)

	added, err := s.Add(ctx, iphone())
	require.NoError(t, err)

	assert.Equal(t, "application/x-ndjson", client.ctypes["bucket/catalog/products.jsonl"])

	reopened, st := catalog.Open(ctx, b)
	require.Equal(t, catalog.LoadOK, st.State)
	require.Len(t, reopened.List(), 1)
	assert.Equal(t, mustJSON(t, added), mustJSON(t, reopened.List()[0]))
}

func TestS3Backend_GetFailure(t *testing.T) {
	client := newFakeS3()
	client.getErr = errors.New("access denied")

	s, st := catalog.Open(context.Background(), catalog.NewS3Backend(client, "bucket", "k"))
	assert.Equal(t, catalog.LoadFailed, st.State)
	assert.Empty(t, s.List())
}
