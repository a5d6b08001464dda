package deps

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blkmlk/file-dashboard/env"
)

func NewS3Client() (*s3.Client, error) {
	region, err := env.Get(env.S3Region)
	if err != nil {
		return nil, err
	}

	accessKey, err := env.Get(env.S3AccessKey)
	if err != nil {
		return nil, err
	}

	secretKey, err := env.Get(env.S3SecretKey)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := env.GetOptional(env.S3Endpoint, ""); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
