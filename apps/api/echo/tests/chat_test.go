package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echoapi "github.com/darasa-app/gumzo/apps/api/echo"
	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/chat"
	testutil "github.com/darasa-app/gumzo/tests"
)

var (
	alice = core.Identity{ID: "alice", Username: "alice", Email: "alice@darasa.app"}
	bob   = core.Identity{ID: "bob", Username: "bob", Email: "bob@darasa.app"}
	eve   = core.Identity{ID: "eve", Username: "eve", Email: "eve@darasa.app"}
)

func chatPath(groupID, suffix string) string {
	return fmt.Sprintf("/v1/chats/group/%s%s", groupID, suffix)
}

func newUploadRequest(t *testing.T, path, token, field, fileName string, content []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("CreateFormFile(): %v", err)
	}
	if _, err = fw.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	for k, v := range fields {
		if err = w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	if err = w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_chatApi_access(t *testing.T) {
	resetApp()

	grp := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID, bob.ID)

	tests := []httpTest{
		{name: "Auth required", path: chatPath(grp.ID, ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Members only", path: chatPath(grp.ID, ""), token: getToken(t, eve), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)},
		{name: "Unknown container kind", path: "/v1/chats/weird/x", token: getToken(t, alice), wantCode: http.StatusNotFound, wantData: marchallObj(t, errHttpNotFound)},
		{name: "Unknown conversation", path: "/v1/chats/direct/nope", token: getToken(t, alice), wantCode: http.StatusNotFound, wantData: marchallObj(t, errHttpNotFound)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_chatApi_sendAndView(t *testing.T) {
	resetApp()

	grp := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID, bob.ID)
	aliceToken := getToken(t, alice)

	t.Run("whitespace-only content is dropped", func(t *testing.T) {
		body := marchallObj(t, echoapi.SendMessageRequest{Content: "   \n "})
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/messages"), aliceToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
	})

	var sent chat.Message
	t.Run("message created", func(t *testing.T) {
		body := marchallObj(t, echoapi.SendMessageRequest{Content: "  habari za leo?  "})
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/messages"), aliceToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if sent.Content != "habari za leo?" {
			t.Errorf("Content = %q; want trimmed", sent.Content)
		}
		if sent.SenderID != alice.ID {
			t.Errorf("SenderID = %s; want %s", sent.SenderID, alice.ID)
		}
	})

	t.Run("reply carries the back-reference", func(t *testing.T) {
		body := marchallObj(t, echoapi.SendMessageRequest{Content: "nzuri sana", ReplyToMessageID: sent.ID})
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/messages"), getToken(t, bob), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		var reply chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if reply.ReplyToMessageID != sent.ID {
			t.Errorf("ReplyToMessageID = %q; want %q", reply.ReplyToMessageID, sent.ID)
		}
	})

	t.Run("view returns ordered history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, chatPath(grp.ID, ""), aliceToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var view struct {
			Messages []chat.Message       `json:"messages"`
			Pins     []chat.PinnedMessage `json:"pins"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(view.Messages) != 2 {
			t.Fatalf("messages = %d; want 2", len(view.Messages))
		}
		if view.Messages[0].ID != sent.ID {
			t.Errorf("messages[0] = %s; want oldest first", view.Messages[0].ID)
		}
		if len(view.Pins) != 0 {
			t.Errorf("pins = %d; want 0", len(view.Pins))
		}
	})
}

func Test_chatApi_editAndDelete(t *testing.T) {
	resetApp()

	grp := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID, bob.ID)
	container := chat.Container{ID: grp.ID, Kind: chat.ContainerGroup}
	msg := testutil.CreateMessage(t, msgRepo, container, alice.ID, "tipo", time.Now().UTC())

	aliceToken := getToken(t, alice)
	bobToken := getToken(t, bob)
	editBody := marchallObj(t, map[string]string{"content": "typo"})

	tests := []httpTest{
		{
			name: "Content required", method: http.MethodPut, path: chatPath(grp.ID, "/messages/"+msg.ID),
			body: marchallObj(t, map[string]string{"content": "  "}), token: aliceToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"content": "this field is required"}),
		},
		{
			name: "Unknown message", method: http.MethodPut, path: chatPath(grp.ID, "/messages/nope"),
			body: editBody, token: aliceToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "message not found"}),
		},
		{
			name: "Only the sender can edit", method: http.MethodPut, path: chatPath(grp.ID, "/messages/"+msg.ID),
			body: editBody, token: bobToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only the sender can modify a message"}),
		},
		{
			name: "Edited", method: http.MethodPut, path: chatPath(grp.ID, "/messages/"+msg.ID),
			body: editBody, token: aliceToken, wantCode: http.StatusNoContent,
		},
		{
			name: "Only the sender can delete", method: http.MethodDelete, path: chatPath(grp.ID, "/messages/"+msg.ID),
			token: bobToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only the sender can modify a message"}),
		},
		{
			name: "Deleted", method: http.MethodDelete, path: chatPath(grp.ID, "/messages/"+msg.ID),
			token: aliceToken, wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deleted message shows the placeholder", func(t *testing.T) {
		got, err := msgRepo.GetMessageByID(context.Background(), container, msg.ID)
		if err != nil {
			t.Fatalf("GetMessageByID(): %v", err)
		}
		if got.Content != chat.DeletedPlaceholder {
			t.Errorf("Content = %q; want placeholder", got.Content)
		}
	})
}

func Test_chatApi_forward(t *testing.T) {
	resetApp()

	src := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID, bob.ID)
	dest := testutil.CreateGroup(t, groupRepo, "Form 4 Chemistry", alice.ID)
	foreign := testutil.CreateGroup(t, groupRepo, "Staff Room", bob.ID)

	srcContainer := chat.Container{ID: src.ID, Kind: chat.ContainerGroup}
	msg := testutil.CreateMessage(t, msgRepo, srcContainer, bob.ID, "leo hakuna darasa", time.Now().UTC())
	aliceToken := getToken(t, alice)

	t.Run("destinations required", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"destinations": []chat.Container{}})
		req, rec := newAuthRequest(http.MethodPost, chatPath(src.ID, "/messages/"+msg.ID+"/forward"), aliceToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("no access to a destination", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"destinations": []chat.Container{{ID: foreign.ID, Kind: chat.ContainerGroup}},
		})
		req, rec := newAuthRequest(http.MethodPost, chatPath(src.ID, "/messages/"+msg.ID+"/forward"), aliceToken, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("forwarded", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"destinations": []chat.Container{{ID: dest.ID, Kind: chat.ContainerGroup}},
		})
		req, rec := newAuthRequest(http.MethodPost, chatPath(src.ID, "/messages/"+msg.ID+"/forward"), aliceToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res chat.ForwardResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(res.Sent) != 1 || len(res.Failed) != 0 {
			t.Fatalf("result = %d sent, %d failed; want 1, 0", len(res.Sent), len(res.Failed))
		}
		if res.Sent[0].Content != chat.ForwardedPrefix+msg.Content {
			t.Errorf("Content = %q; want forwarded marker prefix", res.Sent[0].Content)
		}
	})
}

func Test_chatApi_attachments(t *testing.T) {
	resetApp()

	grp := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID)
	aliceToken := getToken(t, alice)

	t.Run("voice file required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/messages/voice"), aliceToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("voice message uploaded", func(t *testing.T) {
		wav := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
		req, rec := newUploadRequest(t, chatPath(grp.ID, "/messages/voice"), aliceToken, "voice", "clip.wav", wav, map[string]string{"duration": "9"})
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var msg chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if msg.Kind != chat.KindVoice {
			t.Errorf("Kind = %s; want voice", msg.Kind)
		}
		if msg.Attachment == nil || msg.Attachment.VoiceDuration != 9 {
			t.Errorf("Attachment = %+v; want 9s voice descriptor", msg.Attachment)
		}
		if storage.Uploads != 1 {
			t.Errorf("uploads = %d; want 1", storage.Uploads)
		}
	})

	t.Run("unsupported file type rejected before upload", func(t *testing.T) {
		uploadsBefore := storage.Uploads
		zip := []byte("PK\x03\x04\x14\x00\x00\x00")
		req, rec := newUploadRequest(t, chatPath(grp.ID, "/messages/files"), aliceToken, "file", "payload.zip", zip, nil)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
		if storage.Uploads != uploadsBefore {
			t.Errorf("uploads = %d; want unchanged %d", storage.Uploads, uploadsBefore)
		}
	})

	t.Run("document uploaded", func(t *testing.T) {
		pdf := []byte("%PDF-1.4\n%fake body")
		req, rec := newUploadRequest(t, chatPath(grp.ID, "/messages/files"), aliceToken, "file", "notes.pdf", pdf, nil)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var msg chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if msg.Kind != chat.KindFile {
			t.Errorf("Kind = %s; want file", msg.Kind)
		}
		if msg.Attachment == nil || msg.Attachment.FileName != "notes.pdf" {
			t.Errorf("Attachment = %+v; want notes.pdf descriptor", msg.Attachment)
		}
	})

	t.Run("image tagged at ingestion", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		req, rec := newUploadRequest(t, chatPath(grp.ID, "/messages/files"), aliceToken, "file", "photo.png", png, nil)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var msg chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if msg.Kind != chat.KindImage {
			t.Errorf("Kind = %s; want image", msg.Kind)
		}
	})
}

func Test_chatApi_pinsTypingMentions(t *testing.T) {
	resetApp()

	grp := testutil.CreateGroup(t, groupRepo, "Form 4 Physics", alice.ID, bob.ID)
	container := chat.Container{ID: grp.ID, Kind: chat.ContainerGroup}
	msg := testutil.CreateMessage(t, msgRepo, container, alice.ID, "rules: be kind", time.Now().UTC())

	now := time.Now().UTC()
	testutil.CreateProfile(t, profRepo, alice.ID, "Alice W", "alice", now)
	testutil.CreateProfile(t, profRepo, bob.ID, "Bob M", "bob", now)
	testutil.CreateProfile(t, profRepo, "albert", "Albert K", "albert", now) // not a member

	aliceToken := getToken(t, alice)

	t.Run("pin round trip", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/messages/"+msg.ID+"/pin"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, chatPath(grp.ID, "/pins"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var pins []chat.PinnedMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &pins); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(pins) != 1 || pins[0].MessageID != msg.ID {
			t.Fatalf("pins = %+v; want the pinned message", pins)
		}

		req, rec = newAuthRequest(http.MethodDelete, chatPath(grp.ID, "/messages/"+msg.ID+"/pin"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("typing indicator accepted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, chatPath(grp.ID, "/typing"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("mentions are scoped to members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, chatPath(grp.ID, "/mentions?text=%40al"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var res struct {
			Suggestions []struct {
				Username string `json:"username"`
			} `json:"suggestions"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(res.Suggestions) != 1 || res.Suggestions[0].Username != "alice" {
			t.Errorf("suggestions = %+v; want only member alice", res.Suggestions)
		}
	})

	t.Run("plain text yields no suggestions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, chatPath(grp.ID, "/mentions?text=karibu"), aliceToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, map[string]interface{}{"suggestions": []interface{}{}})}
		checkCodeAndData(t, tt, rec)
	})
}
