package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/darasa-app/gumzo/apps/api/echo"
	"github.com/darasa-app/gumzo/core/profile"
	testutil "github.com/darasa-app/gumzo/tests"
)

func Test_profileApi_resolve(t *testing.T) {
	resetApp()

	now := time.Now().UTC()
	testutil.CreateProfile(t, profRepo, alice.ID, "Alice W", "alice", now)
	testutil.CreateProfile(t, profRepo, bob.ID, "Bob M", "bob", now)
	aliceToken := getToken(t, alice)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/profiles?ids=alice")
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Batch resolve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles?ids=alice,bob,ghost", aliceToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var resolved map[string]profile.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(resolved) != 2 {
			t.Errorf("resolved = %d; want alice and bob", len(resolved))
		}
		if _, ok := resolved["ghost"]; ok {
			t.Error("missing profile present; want absent")
		}
	})

	t.Run("No ids", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles", aliceToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, map[string]profile.Profile{})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Unknown id falls back to a placeholder", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/ghost", aliceToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var prof profile.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prof.DisplayName != profile.UnknownDisplayName {
			t.Errorf("DisplayName = %q; want Unknown placeholder", prof.DisplayName)
		}
	})
}

func Test_profileApi_presence(t *testing.T) {
	resetApp()

	now := time.Now().UTC()
	testutil.CreateProfile(t, profRepo, alice.ID, "Alice W", "alice", now.Add(-time.Minute))
	testutil.CreateProfile(t, profRepo, bob.ID, "Bob M", "bob", now.Add(-10*time.Minute))
	aliceToken := getToken(t, alice)

	t.Run("Online within the window", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/alice/presence", aliceToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.PresenceResponse{Online: true, Label: "Online"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Offline past the window", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/bob/presence", aliceToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.PresenceResponse{Online: false, Label: "last seen 10 minutes ago"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Heartbeat brings the user online", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/presence/heartbeat", getToken(t, bob))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/profiles/bob/presence", aliceToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.PresenceResponse{Online: true, Label: "Online"})}
		checkCodeAndData(t, tt, rec)
	})
}
