package storage_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/virlhq/virl/pkg/storage"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func (m *MockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStorage(t *testing.T) (*storage.S3Storage, *MockS3Client, *MockPresigner) {
	t.Helper()
	client := &MockS3Client{}
	presigner := &MockPresigner{}
	st, err := storage.NewS3Storage(context.Background(),
		storage.Config{Bucket: "assets", Region: "us-east-1"},
		storage.WithS3Client(client),
		storage.WithPresigner(presigner),
		storage.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return st, client, presigner
}

func TestNewS3Storage_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := storage.NewS3Storage(context.Background(), storage.Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestNewS3Storage_RealPresigner(t *testing.T) {
	t.Parallel()

	st, err := storage.NewS3Storage(context.Background(), storage.Config{
		Bucket:         "assets",
		Region:         "us-east-1",
		AccessKeyID:    "AKIDEXAMPLE",
		SecretKey:      "secret",
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	req, err := st.PresignUpload(context.Background(), "workspaces/ws-1/assets/a-1/logo.png", "image/png", 1024, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.URL, "http://localhost:9000/assets/workspaces/ws-1/assets/a-1/logo.png")
	assert.Contains(t, req.URL, "X-Amz-Signature=")
}

func TestPresignUpload(t *testing.T) {
	t.Parallel()

	t.Run("binds size and content type", func(t *testing.T) {
		t.Parallel()
		st, _, presigner := newStorage(t)

		presigner.On("PresignPutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Bucket) == "assets" &&
				aws.ToString(in.Key) == "ws-1/file.pdf" &&
				aws.ToInt64(in.ContentLength) == 2048 &&
				aws.ToString(in.ContentType) == "application/pdf"
		})).Return(&v4.PresignedHTTPRequest{
			URL:          "https://assets.s3.amazonaws.com/ws-1/file.pdf?sig",
			Method:       http.MethodPut,
			SignedHeader: http.Header{"Content-Type": []string{"application/pdf"}},
		}, nil)

		req, err := st.PresignUpload(context.Background(), "/ws-1/file.pdf", "application/pdf", 2048, 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "application/pdf", req.Header.Get("Content-Type"))
		assert.Equal(t, fixedNow.Add(15*time.Minute), req.ExpiresAt)
		presigner.AssertExpectations(t)
	})

	t.Run("rejects traversal and empty keys", func(t *testing.T) {
		t.Parallel()
		st, _, _ := newStorage(t)

		_, err := st.PresignUpload(context.Background(), "../etc/passwd", "", 1, time.Minute)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
		_, err = st.PresignUpload(context.Background(), "", "", 1, time.Minute)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		t.Parallel()
		st, _, _ := newStorage(t)

		_, err := st.PresignUpload(context.Background(), "k", "", 0, time.Minute)
		assert.ErrorIs(t, err, storage.ErrInvalidSize)
	})

	t.Run("presign failure", func(t *testing.T) {
		t.Parallel()
		st, _, presigner := newStorage(t)
		presigner.On("PresignPutObject", mock.Anything, mock.Anything).Return(nil, errors.New("no credentials"))

		_, err := st.PresignUpload(context.Background(), "k", "", 1, time.Minute)
		assert.ErrorIs(t, err, storage.ErrFailedToPresign)
	})
}

func TestPresignDownload(t *testing.T) {
	t.Parallel()
	st, _, presigner := newStorage(t)

	presigner.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "ws-1/file.pdf"
	})).Return(&v4.PresignedHTTPRequest{URL: "https://example/get", Method: http.MethodGet}, nil)

	req, err := st.PresignDownload(context.Background(), "ws-1/file.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://example/get", req.URL)
	assert.Equal(t, fixedNow.Add(time.Hour), req.ExpiresAt)
}

func TestStat(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(4096),
			ContentType:   aws.String("image/png"),
			ETag:          aws.String(`"abc"`),
		}, nil)

		info, err := st.Stat(context.Background(), "ws-1/logo.png")
		require.NoError(t, err)
		assert.Equal(t, int64(4096), info.Size)
		assert.Equal(t, "image/png", info.ContentType)
		assert.Equal(t, "ws-1/logo.png", info.Key)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})

		_, err := st.Stat(context.Background(), "ws-1/missing")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("HeadObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"})

		_, err := st.Stat(context.Background(), "ws-1/x")
		assert.ErrorIs(t, err, storage.ErrAccessDenied)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

		_, err := st.Stat(context.Background(), "ws-1/x")
		assert.ErrorIs(t, err, storage.ErrOperationTimeout)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("DeleteObject", mock.Anything, mock.Anything).Return(&s3.DeleteObjectOutput{}, nil)
		assert.NoError(t, st.Delete(context.Background(), "ws-1/x"))
	})

	t.Run("missing object is ignored", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})
		assert.NoError(t, st.Delete(context.Background(), "ws-1/x"))
	})

	t.Run("throttled", func(t *testing.T) {
		t.Parallel()
		st, client, _ := newStorage(t)
		client.On("DeleteObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "SlowDown"})
		assert.ErrorIs(t, st.Delete(context.Background(), "ws-1/x"), storage.ErrServiceUnavailable)
	})
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "workspaces/ws-1/assets/a-1/passwd", storage.ObjectKey("ws-1", "a-1", "../../etc/passwd"))
	assert.Equal(t, "workspaces/ws-1/assets/a-1/file.txt", storage.ObjectKey("ws-1", "a-1", `C:\Windows\file.txt`))
	assert.Equal(t, "workspaces/ws-1/assets/a-1/unnamed", storage.ObjectKey("ws-1", "a-1", ""))
}
