package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openlearn/course-publish-server/redisprovider"
)

const CName = "taskqueue"

var ErrEmpty = errors.New("queue is empty")

func New() Queue {
	return new(queue)
}

type Config struct {
	Key string `yaml:"key"`
}

type configGetter interface {
	GetTaskQueue() Config
}

// Task asks for a course to be republished.
type Task struct {
	Id         string `json:"id"`
	CourseKey  string `json:"courseKey"`
	EnqueuedAt int64  `json:"enqueuedAt"`
}

func NewTask(courseKey string) Task {
	return Task{
		Id:         uuid.New().String(),
		CourseKey:  courseKey,
		EnqueuedAt: time.Now().Unix(),
	}
}

// Queue is a FIFO list shared by every server instance.
type Queue interface {
	Push(ctx context.Context, task Task) error
	// Pop returns ErrEmpty when there is nothing to do
	Pop(ctx context.Context) (Task, error)
	Len(ctx context.Context) (int64, error)
	app.Component
}

type queue struct {
	client redis.UniversalClient
	key    string
}

func (q *queue) Init(a *app.App) (err error) {
	q.client = a.MustComponent(redisprovider.CName).(redisprovider.RedisProvider).Redis()
	q.key = a.MustComponent("config").(configGetter).GetTaskQueue().Key
	if q.key == "" {
		q.key = "coursepublish:tasks"
	}
	return
}

func (q *queue) Name() (name string) {
	return CName
}

func (q *queue) Push(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *queue) Pop(ctx context.Context) (task Task, err error) {
	data, err := q.client.RPop(ctx, q.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrEmpty
		}
		return
	}
	err = json.Unmarshal(data, &task)
	return
}

func (q *queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
