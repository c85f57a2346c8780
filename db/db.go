package db

import (
	"context"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const CName = "db"

var log = logger.NewNamed(CName)

func New() Database {
	return new(database)
}

type Mongo struct {
	Connect  string `yaml:"connect"`
	Database string `yaml:"database"`
}

type configGetter interface {
	GetMongo() Mongo
}

type Database interface {
	app.ComponentRunnable
	Db() *mongo.Database
	// Tx runs f in a transaction that only reads committed data, so partial
	// updates of a running publish are not visible to other readers
	Tx(ctx context.Context, f func(txCtx mongo.SessionContext) error) error
}

type database struct {
	client *mongo.Client
	db     *mongo.Database
}

func (d *database) Init(a *app.App) (err error) {
	conf := a.MustComponent("config").(configGetter).GetMongo()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if d.client, err = mongo.Connect(ctx, options.Client().ApplyURI(conf.Connect)); err != nil {
		return
	}
	d.db = d.client.Database(conf.Database)
	log.Info("mongo connected", zap.String("database", conf.Database))
	return
}

func (d *database) Name() (name string) {
	return CName
}

func (d *database) Run(ctx context.Context) (err error) {
	return d.client.Ping(ctx, nil)
}

func (d *database) Db() *mongo.Database {
	return d.db
}

func (d *database) Tx(ctx context.Context, f func(txCtx mongo.SessionContext) error) error {
	session, err := d.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(txCtx mongo.SessionContext) (interface{}, error) {
		return nil, f(txCtx)
	}, opts)
	return err
}

func (d *database) Close(ctx context.Context) (err error) {
	return d.client.Disconnect(ctx)
}
