package uploader

type configGetter interface {
	GetUpload() Config
}

// Config describes how public asset urls are built: {baseUrl}{bucketName}/{path}.
type Config struct {
	BaseUrl    string `yaml:"baseUrl"`
	BucketName string `yaml:"bucketName"`
}
