package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anyproto/any-sync/app"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrNotFound = errors.New("not found")
)

func New() Store {
	return &store{}
}

const CName = "store"

// Store is the object storage of uploaded course assets.
type Store interface {
	app.Component

	// Save writes the file and returns the path it is stored under
	Save(ctx context.Context, file File) (path string, err error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

type store struct {
	bucket   *string
	client   *s3.Client
	uploader *manager.Uploader
}

func (s *store) Init(a *app.App) (err error) {
	conf := a.MustComponent("config").(configSource).GetS3Store()
	if conf.Bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	awsConf, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return err
	}

	// If creds are provided in the configuration, they are directly forwarded to the client as static credentials.
	if conf.Credentials.AccessKey != "" && conf.Credentials.SecretKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentialsProvider(conf.Credentials.AccessKey, conf.Credentials.SecretKey, "")
	}
	awsConf.Region = conf.Region
	s.bucket = aws.String(conf.Bucket)
	s.client = s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
		o.UsePathStyle = conf.UsePathStyle
		if conf.GoogleCompat {
			o.HTTPClient = newGoogleCompatClient(awsConf)
		}
	})
	s.uploader = manager.NewUploader(s.client)
	return nil
}

func (s *store) Name() string {
	return CName
}

func (s *store) Save(ctx context.Context, file File) (path string, err error) {
	input := &s3.PutObjectInput{
		Bucket:      s.bucket,
		Key:         aws.String(file.Path),
		Body:        file.Reader,
		ContentType: aws.String(file.ContentType()),
	}
	// unknown or large sizes go through multipart upload
	if file.ContentSize <= 0 || file.ContentSize > manager.DefaultUploadPartSize {
		if _, err = s.uploader.Upload(ctx, input); err != nil {
			return "", err
		}
		return file.Path, nil
	}
	input.ContentLength = aws.Int64(file.ContentSize)
	if _, err = s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return file.Path, nil
}

func (s *store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.bucket,
		Key:    &path,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    &path,
	}
	output, err := s.client.GetObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return output.Body, nil
}

func (s *store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    &path,
	})
	return err
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
