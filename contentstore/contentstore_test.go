package contentstore

import (
	"context"
	"testing"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/domain"
)

var ctx = context.Background()

const mongoConnect = "mongodb://localhost:27017/?replicaSet=rs0"

var course = domain.CourseKey{Org: "edX", Course: "DemoX", Run: "2024"}

func TestContentStore_GetItem(t *testing.T) {
	fx := newFixture(t)
	video := domain.UsageKey{Course: course, Category: "video", Name: "v1"}
	node := domain.NewNode(video)
	node.Fields["thumbnail_url"] = "https://cdn/a.png"
	require.NoError(t, fx.CreateItem(ctx, node))

	got, err := fx.GetItem(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.png", got.Fields["thumbnail_url"])

	_, err = fx.GetItem(ctx, domain.UsageKey{Course: course, Category: "video", Name: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, fx.CreateItem(ctx, node), ErrDuplicate)
}

func TestContentStore_Course(t *testing.T) {
	fx := newFixture(t)
	ok, err := fx.HasCourse(ctx, course)
	require.NoError(t, err)
	assert.False(t, ok)

	chapter := domain.UsageKey{Course: course, Category: "chapter", Name: "ch1"}
	require.NoError(t, fx.CreateItem(ctx, domain.NewNode(course.RootKey(), chapter)))

	legacy := course
	legacy.Deprecated = true
	ok, err = fx.HasCourse(ctx, legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	root, err := fx.GetCourse(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, []string{chapter.String()}, root.Children)
}

func TestContentStore_UpdateAndPublish(t *testing.T) {
	fx := newFixture(t)
	video := domain.UsageKey{Course: course, Category: "video", Name: "v1"}
	node := domain.NewNode(video)
	node.Buffer = domain.UploadBuffer{domain.FileTypeThumbnail: {FieldName: "thumbnail_url", Url: "https://cdn/new.png"}}
	require.NoError(t, fx.CreateItem(ctx, node))

	got, err := fx.GetItem(ctx, video)
	require.NoError(t, err)
	require.Len(t, got.Buffer, 1)

	got.Fields["thumbnail_url"] = "https://cdn/new.png"
	got.Buffer = domain.UploadBuffer{}
	got, err = fx.UpdateItem(ctx, got, "staff", true)
	require.NoError(t, err)
	assert.Equal(t, "staff", got.EditedBy)

	require.NoError(t, fx.Publish(ctx, video, "staff"))
	published, err := fx.GetPublished(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", published.Fields["thumbnail_url"])
	assert.Empty(t, published.Buffer)
	assert.Equal(t, "staff", published.PublishedBy)

	_, err = fx.UpdateItem(ctx, domain.NewNode(domain.UsageKey{Course: course, Category: "video", Name: "nope"}), "staff", false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fx.Publish(ctx, domain.UsageKey{Course: course, Category: "video", Name: "nope"}, "staff"), ErrNotFound)
}

func TestContentStore_ListCourses(t *testing.T) {
	testListCourses(t, newFixture(t))
}

type fixture struct {
	ContentStore
	a *app.App
}

func newFixture(t testing.TB) *fixture {
	probeMongo(t)
	fx := &fixture{
		ContentStore: New(),
		a:            new(app.App),
	}
	fx.a.Register(&testConfig{
		Mongo: db.Mongo{
			Connect:  mongoConnect,
			Database: "contentstore_unittest",
		},
	}).
		Register(db.New()).
		Register(fx.ContentStore)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		fx.finish(t)
	})
	return fx
}

func (fx *fixture) finish(t testing.TB) {
	_ = fx.ContentStore.(*contentStore).draftColl.Drop(ctx)
	_ = fx.ContentStore.(*contentStore).publishedColl.Drop(ctx)
	require.NoError(t, fx.a.Close(ctx))
}

func probeMongo(t testing.TB) {
	pctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	client, err := mongo.Connect(pctx, options.Client().ApplyURI(mongoConnect).SetServerSelectionTimeout(time.Second))
	if err == nil {
		err = client.Ping(pctx, nil)
		_ = client.Disconnect(ctx)
	}
	if err != nil {
		t.Skipf("mongo is not available: %v", err)
	}
}

type testConfig struct {
	Mongo db.Mongo
}

func (t testConfig) Init(a *app.App) (err error) {
	return
}

func (t testConfig) Name() (name string) {
	return "config"
}

func (t testConfig) GetMongo() db.Mongo {
	return t.Mongo
}
