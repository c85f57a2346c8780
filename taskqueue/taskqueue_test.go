package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/course-publish-server/redisprovider"
)

var ctx = context.Background()

const redisUrl = "redis://localhost:6379/15"

func TestQueue_PushPop(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.Pop(ctx)
	require.ErrorIs(t, err, ErrEmpty)

	first := NewTask("course-v1:o+c+r1")
	second := NewTask("course-v1:o+c+r2")
	require.NoError(t, fx.Push(ctx, first))
	require.NoError(t, fx.Push(ctx, second))

	l, err := fx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), l)

	got, err := fx.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = fx.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	_, err = fx.Pop(ctx)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewTask(t *testing.T) {
	task := NewTask("k")
	assert.NotEmpty(t, task.Id)
	assert.Equal(t, "k", task.CourseKey)
	assert.NotZero(t, task.EnqueuedAt)
	assert.NotEqual(t, task.Id, NewTask("k").Id)
}

type fixture struct {
	Queue
	a *app.App
}

func newFixture(t *testing.T) *fixture {
	opts, err := redis.ParseURL(redisUrl)
	require.NoError(t, err)
	opts.DialTimeout = time.Second
	probe := redis.NewClient(opts)
	defer probe.Close()
	if err = probe.Ping(ctx).Err(); err != nil {
		t.Skipf("redis is not available: %v", err)
	}

	fx := &fixture{
		Queue: New(),
		a:     new(app.App),
	}
	fx.a.Register(&testConfig{}).
		Register(redisprovider.New()).
		Register(fx.Queue)
	require.NoError(t, fx.a.Start(ctx))
	client := fx.Queue.(*queue).client
	require.NoError(t, client.Del(ctx, "coursepublish:test").Err())
	t.Cleanup(func() {
		_ = client.Del(ctx, "coursepublish:test").Err()
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

type testConfig struct{}

func (t testConfig) Init(a *app.App) (err error) { return }
func (t testConfig) Name() (name string)         { return "config" }

func (t testConfig) GetRedis() redisprovider.Config {
	return redisprovider.Config{Url: redisUrl}
}

func (t testConfig) GetTaskQueue() Config {
	return Config{Key: "coursepublish:test"}
}
