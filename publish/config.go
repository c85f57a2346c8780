package publish

type configGetter interface {
	GetPublish() Config
}

type Config struct {
	// Actor is recorded as the editor and publisher of republished nodes
	Actor              string `yaml:"actor"`
	DrainPeriodSeconds int    `yaml:"drainPeriodSeconds"`
}
