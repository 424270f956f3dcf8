package publisher

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nft-go/internal/nft"
)

// cidMetadataKey is the object metadata key S3-compatible IPFS gateways
// (Filebase) use to report the content id of a stored object.
const cidMetadataKey = "cid"

// S3API is the subset of the S3 client used by S3Publisher.
type S3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Publisher pins files by uploading them to an IPFS-backed S3-compatible
// bucket and reading the resulting content id back from object metadata.
type S3Publisher struct {
	gateway
	bucket   string
	prefix   string
	client   S3API
	uploader *manager.Uploader
	idgen    nft.IDGenerator
	logger   nft.Logger
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Publisher creates a publisher writing under bucket/prefix.
func NewS3Publisher(client S3API, bucket, prefix, gatewayURL string, idgen nft.IDGenerator, logger nft.Logger) *S3Publisher {
	if logger == nil {
		logger = nft.NewNopLogger()
	}
	return &S3Publisher{
		gateway:  gateway(gatewayURL),
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
		idgen:    idgen,
		logger:   logger,
	}
}

// Publish uploads localPath under a fresh key and returns the gateway-reported cid.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, _, err := openLocal(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := path.Join(p.prefix, p.idgen.New()+"-"+filepath.Base(localPath))

	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return "", fmt.Errorf("%w: uploading s3://%s/%s: %v", nft.ErrPublish, p.bucket, key, err)
	}

	head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("%w: head s3://%s/%s: %v", nft.ErrPublish, p.bucket, key, err)
	}

	cid := head.Metadata[cidMetadataKey]
	if cid == "" {
		return "", fmt.Errorf("%w: s3://%s/%s has no %q metadata", nft.ErrPublish, p.bucket, key, cidMetadataKey)
	}

	p.logger.Debug("pinned file", "path", localPath, "key", key, "cid", cid)
	return cid, nil
}

var _ nft.Publisher = (*S3Publisher)(nil)
