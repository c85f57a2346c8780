package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/app/ocache"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
)

const CName = "catalog"

func New() Catalog {
	return new(catalog)
}

var log = logger.NewNamed(CName)

var ErrCourseNotFound = errors.New("course not found")

type Config struct {
	TTLSeconds int `yaml:"ttlSeconds"`
}

type configGetter interface {
	GetCatalog() Config
}

type CourseSummary struct {
	Id          string `json:"id"`
	Org         string `json:"org"`
	Number      string `json:"number"`
	Run         string `json:"run"`
	Name        string `json:"name,omitempty"`
	Children    int    `json:"children"`
	PublishedOn int64  `json:"publishedOn,omitempty"`
}

// Catalog answers course lookups from a short lived cache over the content store.
type Catalog interface {
	// CourseExists accepts canonical and legacy ids, invalid ids don't exist
	CourseExists(ctx context.Context, courseId string) (bool, error)
	Course(ctx context.Context, key domain.CourseKey) (CourseSummary, error)
	// List is served by the content store directly, bypassing the cache
	List(ctx context.Context, org string) ([]CourseSummary, error)
	Invalidate(ctx context.Context, key domain.CourseKey)
	app.ComponentRunnable
}

type catalog struct {
	content contentstore.ContentStore
	cache   ocache.OCache
}

func (c *catalog) Init(a *app.App) (err error) {
	c.content = a.MustComponent(contentstore.CName).(contentstore.ContentStore)
	conf := a.MustComponent("config").(configGetter).GetCatalog()
	if conf.TTLSeconds <= 0 {
		conf.TTLSeconds = 300
	}
	ttl := time.Duration(conf.TTLSeconds) * time.Second
	c.cache = ocache.New(c.loadCourse, ocache.WithLogger(log.Sugar()), ocache.WithGCPeriod(ttl), ocache.WithTTL(ttl))
	return nil
}

func (c *catalog) Name() (name string) {
	return CName
}

func (c *catalog) Run(ctx context.Context) (err error) {
	return
}

func (c *catalog) CourseExists(ctx context.Context, courseId string) (bool, error) {
	key, err := domain.ParseCourseKey(courseId)
	if err != nil {
		return false, nil
	}
	if _, err = c.Course(ctx, key); err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *catalog) Course(ctx context.Context, key domain.CourseKey) (CourseSummary, error) {
	obj, err := c.cache.Get(ctx, key.Canonical().String())
	if err != nil {
		return CourseSummary{}, err
	}
	return obj.(*courseObject).summary, nil
}

func (c *catalog) List(ctx context.Context, org string) ([]CourseSummary, error) {
	roots, err := c.content.ListCourses(ctx, org)
	if err != nil {
		return nil, err
	}
	res := make([]CourseSummary, 0, len(roots))
	for _, root := range roots {
		res = append(res, summarize(root.Location.Course.Canonical(), root))
	}
	return res, nil
}

func (c *catalog) Invalidate(ctx context.Context, key domain.CourseKey) {
	if err := c.remove(ctx, key); err != nil {
		log.Warn("can't invalidate course", zap.String("course", key.String()), zap.Error(err))
	}
}

// remove drops the cached summary, a course that is not cached is fine.
func (c *catalog) remove(ctx context.Context, key domain.CourseKey) error {
	if _, err := c.cache.Remove(ctx, key.Canonical().String()); err != nil && !errors.Is(err, ocache.ErrNotExists) {
		return err
	}
	return nil
}

func (c *catalog) loadCourse(ctx context.Context, id string) (ocache.Object, error) {
	key, err := domain.ParseCourseKey(id)
	if err != nil {
		return nil, err
	}
	root, err := c.content.GetCourse(ctx, key)
	if err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &courseObject{summary: summarize(key, root)}, nil
}

func summarize(key domain.CourseKey, root *domain.Node) CourseSummary {
	summary := CourseSummary{
		Id:          key.String(),
		Org:         key.Org,
		Number:      key.Course,
		Run:         key.Run,
		Children:    len(root.Children),
		PublishedOn: root.PublishedOn,
	}
	summary.Name, _ = root.StringField("display_name")
	return summary
}

type courseObject struct {
	summary CourseSummary
}

func (o *courseObject) Close() (err error) {
	return nil
}

func (o *courseObject) TryClose(objectTTL time.Duration) (res bool, err error) {
	return true, nil
}

func (c *catalog) Close(ctx context.Context) (err error) {
	return c.cache.Close()
}
