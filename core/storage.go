package core

import (
	"context"
	"time"
)

// Object storage buckets owned by the platform.
const (
	BucketChatFiles     = "chat-files"
	BucketVoiceMessages = "voice-messages"
)

// ObjectStorage is the platform's object storage client API. Binaries are
// opaque; access control on private buckets goes through signed URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path string, content []byte, contentType string) error
	CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
	GetPublicURL(bucket, path string) string
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Remove(ctx context.Context, bucket, path string) error
}
