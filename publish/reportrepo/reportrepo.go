package reportrepo

import (
	"context"
	"errors"

	"github.com/anyproto/any-sync/app"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/domain"
)

const CName = "publish.reportrepo"

var ErrNotFound = errors.New("publish report not found")

func New() ReportRepo {
	return new(reportRepo)
}

type ReportRepo interface {
	Save(ctx context.Context, report domain.PublishReport) (id primitive.ObjectID, err error)
	LastForCourse(ctx context.Context, courseKey string) (report domain.PublishReport, err error)
	app.ComponentRunnable
}

var reportIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{"courseKey", 1},
			{"startedAt", -1},
		},
	},
}

type reportRepo struct {
	db         db.Database
	reportColl *mongo.Collection
}

func (r *reportRepo) Name() (name string) {
	return CName
}

func (r *reportRepo) Init(a *app.App) (err error) {
	r.db = a.MustComponent(db.CName).(db.Database)
	r.reportColl = r.db.Db().Collection("publish_report")
	return
}

func (r *reportRepo) Run(ctx context.Context) (err error) {
	existingIndexes, err := r.reportColl.Indexes().ListSpecifications(ctx)
	if err != nil {
		return
	}
	if len(existingIndexes) <= 1 {
		_, err = r.reportColl.Indexes().CreateMany(ctx, reportIndexes)
	}
	return
}

func (r *reportRepo) Save(ctx context.Context, report domain.PublishReport) (id primitive.ObjectID, err error) {
	if report.Id.IsZero() {
		report.Id = primitive.NewObjectID()
	}
	if _, err = r.reportColl.InsertOne(ctx, report); err != nil {
		return
	}
	return report.Id, nil
}

func (r *reportRepo) LastForCourse(ctx context.Context, courseKey string) (report domain.PublishReport, err error) {
	opts := options.FindOne().SetSort(bson.D{{"startedAt", -1}, {"_id", -1}})
	if err = r.reportColl.FindOne(ctx, bson.D{{"courseKey", courseKey}}, opts).Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.PublishReport{}, ErrNotFound
		}
		return
	}
	return
}

func (r *reportRepo) Close(ctx context.Context) (err error) {
	return
}
