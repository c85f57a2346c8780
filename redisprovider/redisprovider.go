package redisprovider

import (
	"context"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const CName = "redisprovider"

var log = logger.NewNamed(CName)

func New() RedisProvider {
	return new(redisProvider)
}

type Config struct {
	Url string `yaml:"url"`
}

type configGetter interface {
	GetRedis() Config
}

// RedisProvider owns the redis connection shared by the cache and the queue.
type RedisProvider interface {
	Redis() redis.UniversalClient
	app.ComponentRunnable
}

type redisProvider struct {
	client redis.UniversalClient
	addr   string
}

func (r *redisProvider) Init(a *app.App) (err error) {
	conf := a.MustComponent("config").(configGetter).GetRedis()
	opts, err := redis.ParseURL(conf.Url)
	if err != nil {
		return
	}
	r.addr = opts.Addr
	r.client = redis.NewClient(opts)
	return
}

func (r *redisProvider) Name() (name string) {
	return CName
}

func (r *redisProvider) Run(ctx context.Context) (err error) {
	if err = r.client.Ping(ctx).Err(); err != nil {
		return
	}
	log.Info("redis connected", zap.String("addr", r.addr))
	return
}

func (r *redisProvider) Redis() redis.UniversalClient {
	return r.client
}

func (r *redisProvider) Close(ctx context.Context) (err error) {
	return r.client.Close()
}
