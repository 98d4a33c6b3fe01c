package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kingrea/rating-desk/internal/config"
)

// Settings locates the bucket exports are uploaded to.
type Settings struct {
	Bucket    string
	Endpoint  string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether a bucket is configured.
func (s Settings) Enabled() bool { return strings.TrimSpace(s.Bucket) != "" }

// SettingsFromConfig reads export.s3 and applies RATER_S3_* overrides.
// Credentials only come from the environment.
func SettingsFromConfig(cfg *config.Config) Settings {
	var s Settings
	if cfg != nil {
		raw := cfg.Project.Export.S3
		s = Settings{Bucket: raw.Bucket, Endpoint: raw.Endpoint, Region: raw.Region, Prefix: raw.Prefix}
	}
	if v := strings.TrimSpace(os.Getenv("RATER_S3_BUCKET")); v != "" {
		s.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("RATER_S3_ENDPOINT")); v != "" {
		s.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("RATER_S3_REGION")); v != "" {
		s.Region = v
	}
	s.AccessKey = strings.TrimSpace(os.Getenv("RATER_S3_ACCESS_KEY"))
	s.SecretKey = strings.TrimSpace(os.Getenv("RATER_S3_SECRET_KEY"))
	if s.Region == "" {
		s.Region = "us-east-1"
	}
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")
	return s
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads exported artifacts.
type Client struct {
	s3     putObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// New builds a client. A custom endpoint (MinIO and friends) switches to
// path-style addressing; static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, settings Settings) (*Client, error) {
	if !settings.Enabled() {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(settings.Region),
	}
	if settings.AccessKey != "" && settings.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}
	endpoint := normalizeEndpoint(settings.Endpoint)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newClient(client, settings), nil
}

func newClient(api putObjectAPI, settings Settings) *Client {
	return &Client{
		s3:     api,
		bucket: strings.TrimSpace(settings.Bucket),
		prefix: settings.Prefix,
		now:    time.Now,
	}
}

// PutArtifact uploads an exported artifact and returns its s3:// reference.
func (c *Client) PutArtifact(ctx context.Context, rater string, body []byte) (string, error) {
	key := ObjectKey(c.prefix, rater, c.now())
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// ObjectKey builds <prefix>/<rater>/data_store-<UTC timestamp>.json. An empty
// rater is filed under "all".
func ObjectKey(prefix, rater string, at time.Time) string {
	rater = strings.TrimSpace(rater)
	if rater == "" {
		rater = "all"
	}
	rater = strings.ReplaceAll(rater, "/", "_")
	name := fmt.Sprintf("data_store-%s.json", at.UTC().Format("20060102T150405Z"))
	return path.Join(strings.Trim(prefix, "/"), rater, name)
}

// ParseRef splits an s3://bucket/key reference.
func ParseRef(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return strings.TrimRight(endpoint, "/")
}
