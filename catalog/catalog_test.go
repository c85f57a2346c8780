package catalog

import (
	"context"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
)

var ctx = context.Background()

var course = domain.CourseKey{Org: "edX", Course: "DemoX", Run: "2024"}

func TestCatalog_CourseExists(t *testing.T) {
	fx := newFixture(t)
	exists, err := fx.CourseExists(ctx, course.String())
	require.NoError(t, err)
	assert.False(t, exists)

	root := domain.NewNode(course.RootKey(), domain.UsageKey{Course: course, Category: "chapter", Name: "c1"})
	root.Fields["display_name"] = "Demo course"
	require.NoError(t, fx.content.CreateItem(ctx, root))

	for _, id := range []string{"course-v1:edX+DemoX+2024", "edX/DemoX/2024"} {
		exists, err = fx.CourseExists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists, id)
	}
	exists, err = fx.CourseExists(ctx, "not a key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCatalog_Course(t *testing.T) {
	fx := newFixture(t)
	root := domain.NewNode(course.RootKey(), domain.UsageKey{Course: course, Category: "chapter", Name: "c1"})
	root.Fields["display_name"] = "Demo course"
	require.NoError(t, fx.content.CreateItem(ctx, root))

	summary, err := fx.Course(ctx, course)
	require.NoError(t, err)
	assert.Equal(t, "Demo course", summary.Name)
	assert.Equal(t, 1, summary.Children)
	assert.Equal(t, "DemoX", summary.Number)

	root.Children = append(root.Children, domain.UsageKey{Course: course, Category: "chapter", Name: "c2"}.String())
	_, err = fx.content.UpdateItem(ctx, root, "staff", false)
	require.NoError(t, err)

	summary, err = fx.Course(ctx, course)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Children, "served from cache")

	fx.Invalidate(ctx, course)
	summary, err = fx.Course(ctx, course)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Children)

	_, err = fx.Course(ctx, domain.CourseKey{Org: "x", Course: "y", Run: "z"})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCatalog_List(t *testing.T) {
	fx := newFixture(t)
	other := domain.CourseKey{Org: "MITx", Course: "6.002x", Run: "2013"}
	root := domain.NewNode(course.RootKey())
	root.Fields["display_name"] = "Demo course"
	require.NoError(t, fx.content.CreateItem(ctx, root))
	require.NoError(t, fx.content.CreateItem(ctx, domain.NewNode(other.RootKey())))

	all, err := fx.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	edx, err := fx.List(ctx, "edx")
	require.NoError(t, err)
	require.Len(t, edx, 1)
	assert.Equal(t, course.String(), edx[0].Id)
	assert.Equal(t, "Demo course", edx[0].Name)

	none, err := fx.List(ctx, "HarvardX")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestCatalog_InvalidateUncached(t *testing.T) {
	fx := newFixture(t)
	c := fx.Catalog.(*catalog)
	require.NoError(t, c.remove(ctx, course))

	require.NoError(t, fx.content.CreateItem(ctx, domain.NewNode(course.RootKey())))
	_, err := fx.Course(ctx, course)
	require.NoError(t, err)
	require.NoError(t, c.remove(ctx, course))
	require.NoError(t, c.remove(ctx, course))
}

type fixture struct {
	Catalog
	content contentstore.ContentStore
	a       *app.App
}

func newFixture(t *testing.T) *fixture {
	fx := &fixture{
		Catalog: New(),
		content: contentstore.NewInMemory(),
		a:       new(app.App),
	}
	fx.a.Register(&testConfig{}).
		Register(fx.content).
		Register(fx.Catalog)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

type testConfig struct{}

func (t testConfig) Init(a *app.App) (err error) { return }
func (t testConfig) Name() (name string)         { return "config" }

func (t testConfig) GetCatalog() Config {
	return Config{TTLSeconds: 60}
}
