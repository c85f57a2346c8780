package config

import (
	"os"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"gopkg.in/yaml.v3"

	"github.com/openlearn/course-publish-server/assetcache"
	"github.com/openlearn/course-publish-server/catalog"
	"github.com/openlearn/course-publish-server/courseapi/apiconfig"
	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/publish"
	"github.com/openlearn/course-publish-server/redisprovider"
	"github.com/openlearn/course-publish-server/store"
	"github.com/openlearn/course-publish-server/taskqueue"
	"github.com/openlearn/course-publish-server/uploader"
)

const CName = "config"

func NewFromFile(path string) (c *Config, err error) {
	c = &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return
}

type Config struct {
	Log        logger.Config        `yaml:"log"`
	Mongo      db.Mongo             `yaml:"mongo"`
	Redis      redisprovider.Config `yaml:"redis"`
	S3Store    store.Config         `yaml:"s3Store"`
	Upload     uploader.Config      `yaml:"upload"`
	Publish    publish.Config       `yaml:"publish"`
	TaskQueue  taskqueue.Config     `yaml:"taskQueue"`
	AssetCache assetcache.Config    `yaml:"assetCache"`
	Catalog    catalog.Config       `yaml:"catalog"`
	Api        apiconfig.Config     `yaml:"api"`
}

func (c *Config) Init(a *app.App) (err error) {
	return nil
}

func (c *Config) Name() (name string) {
	return CName
}

func (c *Config) GetMongo() db.Mongo {
	return c.Mongo
}

func (c *Config) GetRedis() redisprovider.Config {
	return c.Redis
}

func (c *Config) GetS3Store() store.Config {
	return c.S3Store
}

func (c *Config) GetUpload() uploader.Config {
	return c.Upload
}

func (c *Config) GetPublish() publish.Config {
	return c.Publish
}

func (c *Config) GetTaskQueue() taskqueue.Config {
	return c.TaskQueue
}

func (c *Config) GetAssetCache() assetcache.Config {
	return c.AssetCache
}

func (c *Config) GetCatalog() catalog.Config {
	return c.Catalog
}

func (c *Config) GetApi() apiconfig.Config {
	return c.Api
}
