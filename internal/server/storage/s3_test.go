package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects   map[string]string
	headErr   error
	createErr error
	created   []string
	putErr    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	v, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, *in.Bucket)
	return &s3.CreateBucketOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	api := newFakeS3()
	s := &S3Store{client: api, bucket: "b"}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", strings.NewReader("payload"), 7, "text/csv"))

	rc, err := s.Open(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Open(ctx, "k")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_PutError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("slow down")
	s := &S3Store{client: api, bucket: "b"}

	err := s.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	require.ErrorContains(t, err, "slow down")
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		api := newFakeS3()
		require.NoError(t, (&S3Store{client: api, bucket: "b"}).EnsureBucket(context.Background()))
		assert.Empty(t, api.created)
	})

	t.Run("missing is created", func(t *testing.T) {
		api := newFakeS3()
		api.headErr = &types.NotFound{}
		require.NoError(t, (&S3Store{client: api, bucket: "b"}).EnsureBucket(context.Background()))
		assert.Equal(t, []string{"b"}, api.created)
	})

	t.Run("already owned", func(t *testing.T) {
		api := newFakeS3()
		api.headErr = &types.NotFound{}
		api.createErr = &types.BucketAlreadyOwnedByYou{}
		require.NoError(t, (&S3Store{client: api, bucket: "b"}).EnsureBucket(context.Background()))
	})

	t.Run("head fails", func(t *testing.T) {
		api := newFakeS3()
		api.headErr = errors.New("forbidden")
		require.Error(t, (&S3Store{client: api, bucket: "b"}).EnsureBucket(context.Background()))
	})
}

func TestS3Store_PresignGet(t *testing.T) {
	orig := presignGetObject
	defer func() { presignGetObject = orig }()

	var gotTTL time.Duration
	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		opts := &s3.PresignOptions{}
		for _, fn := range optFns {
			fn(opts)
		}
		gotTTL = opts.Expires
		assert.Contains(t, aws.ToString(in.ResponseContentDisposition), `filename=report.pdf`)
		return &v4.PresignedHTTPRequest{URL: "https://s3/" + aws.ToString(in.Key)}, nil
	}

	s := &S3Store{client: newFakeS3(), bucket: "b"}
	u, err := s.PresignGet(context.Background(), "k", "report.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/k", u)
	assert.Equal(t, 5*time.Minute, gotTTL)
}

func TestNewS3Store_UsesSeams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = origLoad }()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Store(context.Background(), &config.Config{S3Bucket: "b"})
	require.ErrorContains(t, err, "no creds")
}
