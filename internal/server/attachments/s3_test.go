package attachments

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
	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket that pages ListObjectsV2 two keys at a time.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putErr   error
	listCall int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCall++

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > 2 {
		keys = keys[:2]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()

	orig := newS3Client
	var gotOpts s3.Options
	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&gotOpts)
		}
		return fake
	}
	t.Cleanup(func() { newS3Client = orig })

	s, err := NewS3Store(context.Background(), S3Options{
		Region: "us-east-1", Bucket: "webmail", BaseEndpoint: "http://minio:9000", AccessKey: "k", SecretKey: "s",
	}, logging.NewDiscard())
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000", aws.ToString(gotOpts.BaseEndpoint))
	assert.True(t, gotOpts.UsePathStyle)
	return s, fake
}

func TestS3Store_Lifecycle(t *testing.T) {
	s, fake := newTestS3Store(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUserArea(ctx, 5))

	name, err := s.Save(ctx, 5, "photo.png", []byte("png!"))
	require.NoError(t, err)
	_, stored := fake.objects["users/5/"+name]
	assert.True(t, stored)

	ok, err := s.Exists(ctx, 5, name)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Load(ctx, 5, name)
	require.NoError(t, err)
	assert.Equal(t, "png!", string(data))

	removed, err := s.Delete(ctx, 5, name)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, 5, name)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Load(ctx, 5, name)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_UsagePaginates(t *testing.T) {
	s, fake := newTestS3Store(t)
	ctx := context.Background()

	for i, size := range []int{1, 2, 3, 4, 5} {
		_, err := s.Save(ctx, 1, "f"+string(rune('a'+i)), make([]byte, size))
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, 2, "other", make([]byte, 100))
	require.NoError(t, err)

	used, err := s.UsageBytes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), used)
	assert.Equal(t, 3, fake.listCall)
}

func TestS3Store_PutError(t *testing.T) {
	s, fake := newTestS3Store(t)
	fake.putErr = errors.New("denied")

	_, err := s.Save(context.Background(), 1, "a", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestS3Store_RejectsTraversal(t *testing.T) {
	s, _ := newTestS3Store(t)

	_, err := s.Exists(context.Background(), 1, "../2/file")
	assert.ErrorIs(t, err, common.ErrValidation)
}
