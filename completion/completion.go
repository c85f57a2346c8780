package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/domain"
)

const CName = "completion"

var log = logger.NewNamed(CName)

var ErrDuplicate = errors.New("completion already exists")

func New() Repo {
	return new(repo)
}

// Filter selects completions of a course. Empty fields match everything.
type Filter struct {
	CourseKey string
	UserIds   []int64
	ContentId string
	Stage     string
}

type Repo interface {
	Create(ctx context.Context, c domain.Completion) (domain.Completion, error)
	List(ctx context.Context, f Filter) ([]domain.Completion, error)
	app.ComponentRunnable
}

var completionIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{"courseKey", 1},
			{"userId", 1},
			{"contentId", 1},
			{"stage", 1},
		},
		Options: options.Index().SetUnique(true),
	},
}

type repo struct {
	coll *mongo.Collection
}

func (r *repo) Name() (name string) {
	return CName
}

func (r *repo) Init(a *app.App) (err error) {
	r.coll = a.MustComponent(db.CName).(db.Database).Db().Collection("course_module_completion")
	return
}

func (r *repo) Run(ctx context.Context) (err error) {
	existing, err := r.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return
	}
	if len(existing) <= 1 {
		_, err = r.coll.Indexes().CreateMany(ctx, completionIndexes)
	}
	return
}

func (r *repo) Create(ctx context.Context, c domain.Completion) (domain.Completion, error) {
	now := time.Now().Unix()
	c.Id = primitive.NewObjectID()
	c.Created, c.Modified = now, now
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Completion{}, fmt.Errorf("%w: %s %d", ErrDuplicate, c.ContentId, c.UserId)
		}
		return domain.Completion{}, err
	}
	log.Debug("completion created", zap.String("course", c.CourseKey), zap.String("content", c.ContentId), zap.Int64("user", c.UserId))
	return c, nil
}

func (r *repo) List(ctx context.Context, f Filter) ([]domain.Completion, error) {
	query := bson.D{{"courseKey", f.CourseKey}}
	if len(f.UserIds) > 0 {
		query = append(query, bson.E{Key: "userId", Value: bson.D{{"$in", f.UserIds}}})
	}
	if f.ContentId != "" {
		query = append(query, bson.E{Key: "contentId", Value: f.ContentId})
	}
	if f.Stage != "" {
		query = append(query, bson.E{Key: "stage", Value: f.Stage})
	}
	cur, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{"created", 1}, {"_id", 1}}))
	if err != nil {
		return nil, err
	}
	res := []domain.Completion{}
	if err = cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repo) Close(ctx context.Context) (err error) {
	return
}
