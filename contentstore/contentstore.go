package contentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/domain"
)

const CName = "contentstore"

var log = logger.NewNamed(CName)

var (
	ErrNotFound  = errors.New("item not found")
	ErrDuplicate = errors.New("item already exists")
)

func New() ContentStore {
	return new(contentStore)
}

// ContentStore keeps course nodes in two branches: the draft edited by
// authors and the published one served to learners.
type ContentStore interface {
	GetItem(ctx context.Context, key domain.UsageKey) (*domain.Node, error)
	GetCourse(ctx context.Context, key domain.CourseKey) (*domain.Node, error)
	HasCourse(ctx context.Context, key domain.CourseKey) (bool, error)
	// ListCourses returns course roots ordered by id, org matched
	// case-insensitively; an empty org lists every course
	ListCourses(ctx context.Context, org string) ([]*domain.Node, error)
	CreateItem(ctx context.Context, node *domain.Node) error
	UpdateItem(ctx context.Context, node *domain.Node, actor string, isPublish bool) (*domain.Node, error)
	Publish(ctx context.Context, key domain.UsageKey, actor string) error
	GetPublished(ctx context.Context, key domain.UsageKey) (*domain.Node, error)
	app.ComponentRunnable
}

// orgCollation makes org lookups case-insensitive; queries must use the same
// collation as the index to hit it.
var orgCollation = &options.Collation{Locale: "en", Strength: 2}

var draftIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{"location.course.org", 1},
			{"location.category", 1},
		},
		Options: options.Index().SetCollation(orgCollation),
	},
}

type contentStore struct {
	db            db.Database
	draftColl     *mongo.Collection
	publishedColl *mongo.Collection
}

func (c *contentStore) Name() (name string) {
	return CName
}

func (c *contentStore) Init(a *app.App) (err error) {
	c.db = a.MustComponent(db.CName).(db.Database)
	c.draftColl = c.db.Db().Collection("draft")
	c.publishedColl = c.db.Db().Collection("published")
	return
}

func (c *contentStore) Run(ctx context.Context) (err error) {
	existing, err := c.draftColl.Indexes().ListSpecifications(ctx)
	if err != nil {
		return
	}
	if len(existing) <= 1 {
		_, err = c.draftColl.Indexes().CreateMany(ctx, draftIndexes)
	}
	return
}

func (c *contentStore) GetItem(ctx context.Context, key domain.UsageKey) (*domain.Node, error) {
	return c.findNode(ctx, c.draftColl, key)
}

func (c *contentStore) GetPublished(ctx context.Context, key domain.UsageKey) (*domain.Node, error) {
	return c.findNode(ctx, c.publishedColl, key)
}

func (c *contentStore) findNode(ctx context.Context, coll *mongo.Collection, key domain.UsageKey) (*domain.Node, error) {
	id := canonicalId(key)
	var node domain.Node
	if err := coll.FindOne(ctx, bson.D{{"_id", id}}).Decode(&node); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &node, nil
}

func (c *contentStore) GetCourse(ctx context.Context, key domain.CourseKey) (*domain.Node, error) {
	return c.GetItem(ctx, key.Canonical().RootKey())
}

func (c *contentStore) HasCourse(ctx context.Context, key domain.CourseKey) (bool, error) {
	count, err := c.draftColl.CountDocuments(ctx, bson.D{{"_id", key.Canonical().RootKey().String()}})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *contentStore) ListCourses(ctx context.Context, org string) ([]*domain.Node, error) {
	query := bson.D{{"location.category", domain.CourseCategory}}
	if org != "" {
		query = append(bson.D{{"location.course.org", org}}, query...)
	}
	cur, err := c.draftColl.Find(ctx, query, options.Find().SetCollation(orgCollation).SetSort(bson.D{{"_id", 1}}))
	if err != nil {
		return nil, err
	}
	var nodes []*domain.Node
	if err = cur.All(ctx, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *contentStore) CreateItem(ctx context.Context, node *domain.Node) error {
	node.Id = canonicalId(node.Location)
	if _, err := c.draftColl.InsertOne(ctx, node); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, node.Id)
		}
		return err
	}
	return nil
}

// UpdateItem replaces the draft. A publish update persists the buffer as
// given, which after a swap is empty.
func (c *contentStore) UpdateItem(ctx context.Context, node *domain.Node, actor string, isPublish bool) (*domain.Node, error) {
	node.Id = canonicalId(node.Location)
	node.EditedBy = actor
	node.EditedOn = time.Now().Unix()
	if isPublish && len(node.Buffer) == 0 {
		node.Buffer = nil
	}
	res, err := c.draftColl.ReplaceOne(ctx, bson.D{{"_id", node.Id}}, node)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, node.Id)
	}
	return node, nil
}

// Publish copies the current draft into the published branch. The read and
// the write share a read-committed transaction.
func (c *contentStore) Publish(ctx context.Context, key domain.UsageKey, actor string) error {
	id := canonicalId(key)
	return c.db.Tx(ctx, func(txCtx mongo.SessionContext) (err error) {
		var node domain.Node
		if err = c.draftColl.FindOne(txCtx, bson.D{{"_id", id}}).Decode(&node); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return
		}
		node.Buffer = nil
		node.PublishedBy = actor
		node.PublishedOn = time.Now().Unix()
		_, err = c.publishedColl.ReplaceOne(txCtx, bson.D{{"_id", id}}, node, options.Replace().SetUpsert(true))
		if err != nil {
			return
		}
		_, err = c.draftColl.UpdateOne(txCtx, bson.D{{"_id", id}}, bson.D{{"$set", bson.D{
			{"publishedBy", node.PublishedBy},
			{"publishedOn", node.PublishedOn},
		}}})
		if err == nil {
			log.Debug("item published", zap.String("key", id), zap.String("actor", actor))
		}
		return
	})
}

func (c *contentStore) Close(ctx context.Context) (err error) {
	return
}

func canonicalId(key domain.UsageKey) string {
	key.Course = key.Course.Canonical()
	return key.String()
}
