package apiconfig

type ConfigGetter interface {
	GetApi() Config
}

type Config struct {
	Addr string `yaml:"addr"`
	// LookupUpperBound caps comma separated query params
	LookupUpperBound int `yaml:"lookupUpperBound"`
	// MaxUploadMb limits the in-memory part of multipart uploads
	MaxUploadMb int64 `yaml:"maxUploadMb"`
	// DefaultActor is used when a request carries no X-Actor header
	DefaultActor string `yaml:"defaultActor"`
}
