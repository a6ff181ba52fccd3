package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	pageLen int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 pages through sorted keys, pageLen at a time, using the
// index of the next key as the continuation token.
func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start = len(tok)
	}
	end := len(names)
	if f.pageLen > 0 && start+f.pageLen < end {
		end = start + f.pageLen
	}
	out := &s3.ListObjectsV2Output{}
	for _, n := range names[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(n)})
	}
	if end < len(names) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strings.Repeat("x", end))
	}
	return out, nil
}

func TestS3_ReadWriteDelete(t *testing.T) {
	api := newFakeS3()
	s := NewS3Store(api, "bucket", "/drafts/")
	ctx := context.Background()
	key := models.Key(models.KindDraftPaste, "alice", "notes")

	_, err := s.Read(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, key, []byte(`{"name":"notes"}`)))
	assert.Contains(t, api.objects, "drafts/draft-paste/alice/notes")

	got, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"notes"}`, string(got))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Read(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestS3_WriteErrorIsLocalStore(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("access denied")
	s := NewS3Store(api, "bucket", "")

	err := s.Write(context.Background(), models.Key(models.KindDraftNow, "alice"), []byte("x"))
	require.ErrorIs(t, err, ErrLocalStore)
}

func TestS3_ListFollowsPages(t *testing.T) {
	api := newFakeS3()
	api.pageLen = 2
	s := NewS3Store(api, "bucket", "p")
	ctx := context.Background()

	want := []models.CacheKey{
		models.Key(models.KindDraftStatus, "alice"),
		models.Key(models.KindDraftStatus, "bob"),
		models.Key(models.KindDraftStatus, "carol", "9"),
		models.Key(models.KindDraftStatus, "dave"),
		models.Key(models.KindDraftStatus, "erin"),
	}
	for _, k := range want {
		require.NoError(t, s.Write(ctx, k, []byte("{}")))
	}
	require.NoError(t, s.Write(ctx, models.Key(models.KindDraftNow, "alice"), []byte("{}")))

	got, err := s.List(ctx, models.KindDraftStatus)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestOpenS3_RequiresBucket(t *testing.T) {
	_, err := OpenS3(context.Background(), S3Options{})
	require.Error(t, err)
}

func TestOpenS3_UsesCustomEndpoint(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var gotOpts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(&gotOpts)
		}
		return newFakeS3()
	}

	s, err := OpenS3(context.Background(), S3Options{
		Bucket:    "b",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "k",
		SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", s.bucket)
	assert.Equal(t, "http://localhost:9000", aws.ToString(gotOpts.BaseEndpoint))
	assert.True(t, gotOpts.UsePathStyle)
}
