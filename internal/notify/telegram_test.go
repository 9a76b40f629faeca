package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSend(t *testing.T) {
	var gotPath, gotChatID, gotCaption string
	var gotPhoto []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")

		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("reading photo part: %v", err)
		}
		defer file.Close()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotPhoto = buf[:n]

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := NewTelegram("SECRET", "42")
	tg.baseURL = server.URL

	err := tg.Send(context.Background(), []byte("jpeg-bytes"), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/botSECRET/sendPhoto" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotChatID != "42" {
		t.Errorf("expected chat_id 42, got %q", gotChatID)
	}
	if gotCaption != "hello" {
		t.Errorf("expected caption 'hello', got %q", gotCaption)
	}
	if string(gotPhoto) != "jpeg-bytes" {
		t.Errorf("expected photo payload, got %q", gotPhoto)
	}
}

func TestTelegramSendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusForbidden)
	}))
	defer server.Close()

	tg := NewTelegram("SECRET", "42")
	tg.baseURL = server.URL

	if err := tg.Send(context.Background(), []byte("x"), "y"); err == nil {
		t.Error("expected error on 403 response")
	}
}

func TestMatchedCaption(t *testing.T) {
	caption := MatchedCaption("Alice", "123", "2025-03-10 08:30:00")
	for _, want := range []string{"Attendance Taken", "Name: Alice", "RFID: 123", "Time: 2025-03-10 08:30:00"} {
		if !strings.Contains(caption, want) {
			t.Errorf("caption missing %q: %q", want, caption)
		}
	}
}

func TestLimitCaption(t *testing.T) {
	caption := LimitCaption("Alice", "123")
	if !strings.Contains(caption, "[Limit Reached]") {
		t.Errorf("caption missing limit marker: %q", caption)
	}
	if !strings.Contains(caption, "RFID: 123") {
		t.Errorf("caption missing credential: %q", caption)
	}
}
