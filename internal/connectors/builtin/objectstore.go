package builtin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tidewire/tidewire/internal/connectors"
)

// Link keys understood by ObjectStoreConnector.
const (
	LinkEndpoint  = "endpoint"
	LinkAccessKey = "access_key"
	LinkSecretKey = "secret_key"
	LinkBucket    = "bucket"
	LinkRegion    = "region"
	LinkUseSSL    = "use_ssl"
)

// ObjectStoreConnector moves data to and from S3-compatible object stores.
type ObjectStoreConnector struct{}

func (*ObjectStoreConnector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{
		Directions: []connectors.Direction{connectors.DirectionFrom, connectors.DirectionTo},
		LinkKeys:   []string{LinkEndpoint, LinkAccessKey, LinkSecretKey, LinkBucket, LinkRegion, LinkUseSSL},
	}
}

// Check verifies that the link's bucket exists.
func (*ObjectStoreConnector) Check(ctx context.Context, link map[string]string) error {
	endpoint := strings.TrimSpace(link[LinkEndpoint])
	bucket := strings.TrimSpace(link[LinkBucket])
	accessKey := strings.TrimSpace(link[LinkAccessKey])
	secretKey := strings.TrimSpace(link[LinkSecretKey])
	if endpoint == "" || bucket == "" {
		return errors.New("object store link requires endpoint and bucket")
	}
	if accessKey == "" || secretKey == "" {
		return errors.New("object store link requires credentials")
	}

	useSSL := strings.EqualFold(strings.TrimSpace(link[LinkUseSSL]), "true")
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}
	region := strings.TrimSpace(link[LinkRegion])
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", bucket)
	}
	return nil
}
