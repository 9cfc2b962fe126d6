package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	putIn   *s3.PutObjectInput
	putBody string
	putErr  error

	headErr error

	deleted   []string
	deleteErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.putBody = string(b)
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestObjectKey(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) }
	defer func() { now = orig }()

	k := ObjectKey("/tmp/Avatar.PNG")
	assert.True(t, strings.HasPrefix(k, "media/2026/3/7/"), k)
	assert.True(t, strings.HasSuffix(k, ".png"), k)
	assert.NotEqual(t, k, ObjectKey("/tmp/Avatar.PNG"))
}

func TestUpload_Success(t *testing.T) {
	fs := &fakeS3{}
	st := NewStore(fs, "media", "http://cdn.local/media", logging.NopLogger{})

	p := writeTemp(t, "a.png", "PNGDATA")
	res, err := st.Upload(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "media", aws.ToString(fs.putIn.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fs.putIn.ContentType))
	assert.Equal(t, "PNGDATA", fs.putBody)
	assert.Equal(t, "http://cdn.local/media/"+res.Key, res.SecureURL)

	_, err = os.Stat(p)
	assert.NoError(t, err, "upload must not remove the staged file")
}

func TestUpload_Errors(t *testing.T) {
	st := NewStore(&fakeS3{}, "media", "http://cdn.local/media/", logging.NopLogger{})

	_, err := st.Upload(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = st.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	failing := NewStore(&fakeS3{putErr: errors.New("s3 down")}, "media", "http://cdn.local/media/", logging.NopLogger{})
	_, err = failing.Upload(context.Background(), writeTemp(t, "b.jpg", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 down")
}

func TestKeyFromURL(t *testing.T) {
	st := NewStore(&fakeS3{}, "media", "http://cdn.local/media/", logging.NopLogger{})

	assert.Equal(t, "avatars/2026/1/1/x.png", st.KeyFromURL("http://cdn.local/media/avatars/2026/1/1/x.png"))
	assert.Equal(t, "", st.KeyFromURL("https://elsewhere/x.png"))
	assert.Equal(t, "", st.KeyFromURL(""))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	url := "http://cdn.local/media/avatars/2026/1/1/x.png"

	t.Run("ok", func(t *testing.T) {
		fs := &fakeS3{}
		st := NewStore(fs, "media", "http://cdn.local/media/", logging.NopLogger{})
		res, err := st.Delete(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, ResultOK, res.Result)
		assert.Equal(t, []string{"avatars/2026/1/1/x.png"}, fs.deleted)
	})

	t.Run("foreign url", func(t *testing.T) {
		fs := &fakeS3{}
		st := NewStore(fs, "media", "http://cdn.local/media/", logging.NopLogger{})
		res, err := st.Delete(ctx, "https://res.cloudinary.com/a.png")
		require.NoError(t, err)
		assert.Equal(t, ResultNotFound, res.Result)
		assert.Empty(t, fs.deleted)
	})

	t.Run("missing object", func(t *testing.T) {
		fs := &fakeS3{headErr: &types.NotFound{}}
		st := NewStore(fs, "media", "http://cdn.local/media/", logging.NopLogger{})
		res, err := st.Delete(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, ResultNotFound, res.Result)
	})

	t.Run("head error", func(t *testing.T) {
		st := NewStore(&fakeS3{headErr: errors.New("denied")}, "media", "http://cdn.local/media/", logging.NopLogger{})
		_, err := st.Delete(ctx, url)
		assert.Error(t, err)
	})

	t.Run("delete error", func(t *testing.T) {
		st := NewStore(&fakeS3{deleteErr: errors.New("boom")}, "media", "http://cdn.local/media/", logging.NopLogger{})
		_, err := st.Delete(ctx, url)
		assert.Error(t, err)
	})
}

func TestNewS3Store(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	defer func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew }()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	fs := &fakeS3{}
	var opts s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(c aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fs
	}

	st, err := NewS3Store(context.Background(), cfg, logging.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000/media/x", st.URLFor("x"))

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = NewS3Store(context.Background(), cfg, logging.NopLogger{})
	assert.Error(t, err)
}
