package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
)

// NopLogger is a core.Logger that discards everything.
type NopLogger struct{}

func (NopLogger) Enable(bool)                        {}
func (NopLogger) Debug(string, ...interface{})       {}
func (NopLogger) Info(string, ...interface{})        {}
func (NopLogger) Warn(string, ...interface{})        {}
func (NopLogger) Error(string, ...interface{})       {}
func (NopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

var _ core.Logger = (*NopLogger)(nil)

// FakeStorage is a core.ObjectStorage that records objects in memory and
// counts calls, so tests can assert no network round-trip happened.
type FakeStorage struct {
	Uploads   int
	Signed    int
	Removals  int
	Objects   map[string][]byte
	UploadErr error
}

var _ core.ObjectStorage = (*FakeStorage)(nil)

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Objects: make(map[string][]byte)}
}

func (s *FakeStorage) Upload(_ context.Context, bucket, path string, content []byte, _ string) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	s.Uploads++
	s.Objects[bucket+"/"+path] = content
	return nil
}

func (s *FakeStorage) CreateSignedURL(_ context.Context, bucket, path string, _ time.Duration) (string, error) {
	s.Signed++
	return "http://storage.test/object/sign/" + bucket + "/" + path + "?token=t", nil
}

func (s *FakeStorage) GetPublicURL(bucket, path string) string {
	return "http://storage.test/object/public/" + bucket + "/" + path
}

func (s *FakeStorage) Download(_ context.Context, bucket, path string) ([]byte, error) {
	return s.Objects[bucket+"/"+path], nil
}

func (s *FakeStorage) Remove(_ context.Context, bucket, path string) error {
	s.Removals++
	delete(s.Objects, bucket+"/"+path)
	return nil
}

// NewTestConfig returns a minimal config for tests; no env files are read.
func NewTestConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		Env:       "test",
		AppName:   "Gumzo",
		SecretKey: "poq5-wer)$+s=1b#1cns9g$68*6ya@j)b!v0#5crxifibs9b_o",
		Storage: core.StorageConfig{
			BaseURL:      "http://storage.test",
			SignedURLTTL: time.Hour,
		},
	}
}

// MarshalJSON marshals obj, failing the test on error.
func MarshalJSON(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("MarshalJSON(): %v", err)
	}
	return data
}

func CreateProfile(t *testing.T, repo interface{ Seed(...profile.Profile) }, id, displayName, username string, lastSeen time.Time) profile.Profile {
	t.Helper()

	prof := profile.Profile{
		ID:          id,
		DisplayName: displayName,
		Username:    username,
		LastSeenAt:  lastSeen,
	}
	repo.Seed(prof)
	return prof
}

func CreateGroup(t *testing.T, repo group.Repository, name, ownerID string, memberIDs ...string) group.Group {
	t.Helper()
	ctx := context.Background()

	g, err := repo.CreateGroup(ctx, group.Group{Name: name, OwnerID: ownerID, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	if _, err = repo.AddMember(ctx, group.Member{GroupID: g.ID, UserID: ownerID, Role: group.RoleOwner, JoinedAt: g.CreatedAt}); err != nil {
		t.Fatalf("AddMember(): %v", err)
	}
	for _, id := range memberIDs {
		if _, err = repo.AddMember(ctx, group.Member{GroupID: g.ID, UserID: id, Role: group.RoleMember, JoinedAt: g.CreatedAt}); err != nil {
			t.Fatalf("AddMember(): %v", err)
		}
	}
	return g
}

func CreateMessage(t *testing.T, repo chat.Repository, container chat.Container, senderID, content string, createdAt time.Time) chat.Message {
	t.Helper()

	msg, err := repo.CreateMessage(context.Background(), chat.Message{
		ID:            uuid.New().String(),
		ContainerID:   container.ID,
		ContainerKind: container.Kind,
		SenderID:      senderID,
		Content:       content,
		Kind:          chat.KindText,
		CreatedAt:     createdAt,
	})
	if err != nil {
		t.Fatalf("CreateMessage(): %v", err)
	}
	return msg
}
