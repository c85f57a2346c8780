package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/redisprovider"
)

const CName = "assetcache"

// CacheVersion is part of every key; bump it when StoredAsset changes shape.
const CacheVersion = 1

var log = logger.NewNamed(CName)

var ErrNotFound = errors.New("asset is not cached")

func New() AssetCache {
	return new(assetCache)
}

type Config struct {
	TTLSeconds int `yaml:"ttlSeconds"`
}

type configGetter interface {
	GetAssetCache() Config
}

type AssetCache interface {
	Set(ctx context.Context, asset domain.StoredAsset) error
	Get(ctx context.Context, key domain.AssetKey) (domain.StoredAsset, error)
	// Delete drops the asset and its run-less variant. The variant exists
	// when the asset was cached before the course run was known.
	Delete(ctx context.Context, key domain.AssetKey) error
	app.Component
}

type assetCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func (c *assetCache) Init(a *app.App) (err error) {
	c.client = a.MustComponent(redisprovider.CName).(redisprovider.RedisProvider).Redis()
	conf := a.MustComponent("config").(configGetter).GetAssetCache()
	if conf.TTLSeconds <= 0 {
		conf.TTLSeconds = 24 * 60 * 60
	}
	c.ttl = time.Duration(conf.TTLSeconds) * time.Second
	return
}

func (c *assetCache) Name() (name string) {
	return CName
}

func (c *assetCache) Set(ctx context.Context, asset domain.StoredAsset) error {
	data, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(asset.Key), snappy.Encode(nil, data), c.ttl).Err()
}

func (c *assetCache) Get(ctx context.Context, key domain.AssetKey) (asset domain.StoredAsset, err error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrNotFound
		}
		return
	}
	if data, err = snappy.Decode(nil, data); err != nil {
		return
	}
	err = json.Unmarshal(data, &asset)
	return
}

func (c *assetCache) Delete(ctx context.Context, key domain.AssetKey) error {
	keys := []string{cacheKey(key)}
	if runless, err := key.ReplaceRun(""); err == nil {
		if k := cacheKey(runless); k != keys[0] {
			keys = append(keys, k)
		}
	} else {
		log.Debug("no run-less variant", zap.String("key", key.String()), zap.Error(err))
	}
	return c.client.Del(ctx, keys...).Err()
}

func cacheKey(key domain.AssetKey) string {
	return fmt.Sprintf("v%d:%s", CacheVersion, key.String())
}
