package store

type configSource interface {
	GetS3Store() Config
}

type Credentials struct {
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type Config struct {
	Region       string      `yaml:"region"`
	Bucket       string      `yaml:"bucket"`
	Endpoint     string      `yaml:"endpoint"`
	UsePathStyle bool        `yaml:"usePathStyle"`
	Credentials  Credentials `yaml:"credentials"`
	// GoogleCompat re-signs requests without Accept-Encoding for the GCS XML API
	GoogleCompat bool `yaml:"googleCompat"`
}
