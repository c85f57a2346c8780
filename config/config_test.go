package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromFile(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		conf, err := NewFromFile("../etc/course-publish-server.yml")
		require.NoError(t, err)
		assert.Equal(t, "coursepublish", conf.GetMongo().Database)
		assert.Equal(t, "redis://localhost:6379/0", conf.GetRedis().Url)
		assert.Equal(t, "course-assets", conf.GetS3Store().Bucket)
		assert.Equal(t, "https://storage.example.com/", conf.GetUpload().BaseUrl)
		assert.Equal(t, 5, conf.GetPublish().DrainPeriodSeconds)
		assert.Equal(t, "coursepublish:tasks", conf.GetTaskQueue().Key)
		assert.Equal(t, 86400, conf.GetAssetCache().TTLSeconds)
		assert.Equal(t, 300, conf.GetCatalog().TTLSeconds)
		assert.Equal(t, 100, conf.GetApi().LookupUpperBound)
		assert.Equal(t, "debug", conf.Log.NamedLevels["publish.service"])
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("mongo: [unclosed"), 0o600))
		_, err := NewFromFile(path)
		require.Error(t, err)
	})
}
