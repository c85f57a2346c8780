package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestStore_Save(t *testing.T) {
	fx := newFixture(t)
	data := bytes.NewReader([]byte("some data"))
	path, err := fx.Save(ctx, File{Path: "thumbnails/owner/key.txt", ContentSize: data.Size(), Reader: data})
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/owner/key.txt", path)

	exists, err := fx.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := fx.Get(ctx, path)
	require.NoError(t, err)
	result, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "some data", string(result))

	require.NoError(t, fx.Delete(ctx, path))
	exists, err = fx.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = fx.Get(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_ContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", File{Path: "pdfs/a/b_doc.pdf"}.ContentType())
	assert.Equal(t, "application/octet-stream", File{Path: "videos/a/b_clip"}.ContentType())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

type fixture struct {
	Store
	a *app.App
}

func newFixture(t *testing.T) *fixture {
	bucket := os.Getenv("TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("TEST_S3_BUCKET is not set")
	}
	fx := &fixture{
		Store: New(),
		a:     new(app.App),
	}
	config := &testConfig{
		s3: Config{
			Region:       os.Getenv("TEST_S3_REGION"),
			Bucket:       bucket,
			Endpoint:     os.Getenv("TEST_S3_ENDPOINT"),
			UsePathStyle: os.Getenv("TEST_S3_ENDPOINT") != "",
		},
	}
	fx.a.Register(fx.Store).Register(config)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

type testConfig struct {
	s3 Config
}

func (t testConfig) Init(a *app.App) (err error) { return }
func (t testConfig) Name() (name string)         { return "config" }

func (t testConfig) GetS3Store() Config {
	return t.s3
}
