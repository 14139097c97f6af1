package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"academy/internal/apperrors"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentKeyAndURI(t *testing.T) {
	assert.Equal(t, "courses/c1/modules/m1/content.md", ContentKey("c1", "m1", "content.md"))

	assert.True(t, IsObjectURI("  s3://bucket/key"))
	assert.False(t, IsObjectURI("# Heading"))

	ref, err := ParseObjectURI("s3://academy-content/courses/c1/modules/m1/content.md")
	require.NoError(t, err)
	assert.Equal(t, "academy-content", ref.Bucket)
	assert.Equal(t, "courses/c1/modules/m1/content.md", ref.Key)

	ref, err = ParseObjectURI("s3://academy-content")
	require.NoError(t, err)
	assert.Empty(t, ref.Key)

	_, err = ParseObjectURI("s3:///key")
	assert.Error(t, err)
	_, err = ParseObjectURI("https://example.com")
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string]string
	calls   int
	last    *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	f.last = in
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3StoreFetch(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"default/k1": "# one", "other/k2": "# two"}}
	store := &S3Store{client: fake, bucket: "default"}
	ctx := context.Background()

	body, err := store.Fetch(ctx, ObjectRef{Key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "# one", body)

	body, err = store.Fetch(ctx, ObjectRef{Bucket: "other", Key: "k2"})
	require.NoError(t, err)
	assert.Equal(t, "# two", body)

	_, err = store.Fetch(ctx, ObjectRef{Key: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

type fakeRedis struct {
	data   map[string]string
	getErr error
	sets   int
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.sets++
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestCachedStoreReadThrough(t *testing.T) {
	s3fake := &fakeS3{objects: map[string]string{"b/k": "body"}}
	rdb := &fakeRedis{data: map[string]string{}}
	store := &CachedStore{next: &S3Store{client: s3fake, bucket: "b"}, cache: rdb, ttl: time.Minute}
	ctx := context.Background()
	ref := ObjectRef{Bucket: "b", Key: "k"}

	for i := 0; i < 3; i++ {
		body, err := store.Fetch(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "body", body)
	}
	assert.Equal(t, 1, s3fake.calls)
	assert.Equal(t, 1, rdb.sets)

	// Misses are not cached.
	_, err := store.Fetch(ctx, ObjectRef{Bucket: "b", Key: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, rdb.sets)
}

func TestCachedStoreRedisDown(t *testing.T) {
	s3fake := &fakeS3{objects: map[string]string{"b/k": "body"}}
	rdb := &fakeRedis{data: map[string]string{}, getErr: errors.New("connection refused")}
	store := &CachedStore{next: &S3Store{client: s3fake, bucket: "b"}, cache: rdb, ttl: time.Minute}

	body, err := store.Fetch(context.Background(), ObjectRef{Bucket: "b", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "body", body)
}
