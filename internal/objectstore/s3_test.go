package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kingrea/rating-desk/internal/config"
)

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = *in.Bucket
	f.key = *in.Key
	f.contentType = *in.ContentType
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestPutArtifactUploadsUnderPrefix(t *testing.T) {
	fake := &fakePutter{}
	client := newClient(fake, Settings{Bucket: "ratings", Prefix: "desk"})
	client.now = func() time.Time { return time.Date(2026, 10, 14, 8, 5, 9, 0, time.UTC) }
	ref, err := client.PutArtifact(context.Background(), "alice", []byte(`{"alice":{}}`))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref != "s3://ratings/desk/alice/data_store-20261014T080509Z.json" {
		t.Fatalf("ref = %s", ref)
	}
	if fake.bucket != "ratings" || fake.contentType != "application/json" || string(fake.body) != `{"alice":{}}` {
		t.Fatalf("unexpected upload %+v", fake)
	}
	bucket, key, err := ParseRef(ref)
	if err != nil || bucket != "ratings" || key != fake.key {
		t.Fatalf("ParseRef = %s %s %v", bucket, key, err)
	}
}

func TestPutArtifactWrapsErrors(t *testing.T) {
	client := newClient(&fakePutter{err: errors.New("access denied")}, Settings{Bucket: "b"})
	if _, err := client.PutArtifact(context.Background(), "", []byte("{}")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("KST", 9*3600))
	if got := ObjectKey("", "", at); got != "all/data_store-20260101T180405Z.json" {
		t.Fatalf("key = %s", got)
	}
	if got := ObjectKey("/p/", "a/b", at); got != "p/a_b/data_store-20260101T180405Z.json" {
		t.Fatalf("key = %s", got)
	}
}

func TestParseRefRejectsBadInput(t *testing.T) {
	for _, ref := range []string{"ratings/key", "s3://", "s3:///key", "s3://bucket/"} {
		if _, _, err := ParseRef(ref); err == nil {
			t.Fatalf("expected error for %q", ref)
		}
	}
}

func TestSettingsFromConfigEnv(t *testing.T) {
	cfg := &config.Config{}
	cfg.Project.Export.S3 = config.S3Config{Bucket: "from-config", Prefix: "/ratings/"}
	t.Setenv("RATER_S3_ENDPOINT", "localhost:9000")
	t.Setenv("RATER_S3_ACCESS_KEY", "minio")
	t.Setenv("RATER_S3_SECRET_KEY", "secret")
	s := SettingsFromConfig(cfg)
	if !s.Enabled() || s.Bucket != "from-config" || s.Prefix != "ratings" || s.Region != "us-east-1" {
		t.Fatalf("settings = %+v", s)
	}
	if s.Endpoint != "localhost:9000" || s.AccessKey != "minio" {
		t.Fatalf("env overrides not applied: %+v", s)
	}
	if normalizeEndpoint(s.Endpoint) != "http://localhost:9000" {
		t.Fatalf("endpoint = %s", normalizeEndpoint(s.Endpoint))
	}
	if normalizeEndpoint("https://s3.example.com/") != "https://s3.example.com" {
		t.Fatalf("https endpoint mangled")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Settings{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
