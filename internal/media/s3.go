package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/shopit-io/shopit/internal/models"
)

// Source describes the avatar image supplied at registration: either the
// uploaded file contents or a remote URL to fetch, never both.
type Source struct {
	File      io.Reader
	Filename  string
	RemoteURL string
}

// IsZero reports whether no avatar was supplied.
func (s Source) IsZero() bool {
	return s.File == nil && s.RemoteURL == ""
}

// Client uploads avatar images to an S3-compatible media host
// (DigitalOcean Spaces) and returns CDN-backed URLs.
type Client struct {
	client    *s3.Client
	bucket    string
	cdnDomain string
	fetcher   *http.Client
}

// NewClient creates a media client for the given Spaces endpoint and bucket
func NewClient(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*Client, error) {
	cdnDomain := fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com", bucket, region)

	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for DigitalOcean Spaces
	})

	return &Client{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
		fetcher:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// UploadAvatar stores the avatar image under the avatars/ prefix and returns
// the resulting reference. For a RemoteURL source the image is fetched first.
func (c *Client) UploadAvatar(ctx context.Context, src Source) (models.Avatar, error) {
	reader := src.File
	filename := src.Filename

	if reader == nil {
		if src.RemoteURL == "" {
			return models.Avatar{}, fmt.Errorf("empty avatar source")
		}
		body, name, err := c.fetchRemote(ctx, src.RemoteURL)
		if err != nil {
			return models.Avatar{}, err
		}
		defer body.Close()
		reader = body
		filename = name
	}

	key := fmt.Sprintf("avatars/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(filename)))

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentTypeFor(filename)),
		ACL:         types.ObjectCannedACLPublicRead,
	}

	if _, err := c.client.PutObject(ctx, putInput); err != nil {
		return models.Avatar{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	return models.Avatar{
		PublicID: key,
		URL:      fmt.Sprintf("%s/%s", c.cdnDomain, key),
	}, nil
}

// fetchRemote downloads an externally referenced image so it can be
// re-hosted on the media bucket.
func (c *Client) fetchRemote(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid avatar URL: %w", err)
	}

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch avatar: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("failed to fetch avatar: status %d", resp.StatusCode)
	}

	return resp.Body, filepath.Base(req.URL.Path), nil
}

// contentTypeFor returns the content type based on file extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
