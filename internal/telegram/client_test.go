package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(APIResponse{OK: true})
	}))
	defer server.Close()

	client := NewClient("test-token").WithBaseURL(server.URL)
	if err := client.SendMessage(42, "привет", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotPath != "/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.ChatID != 42 || gotBody.Text != "привет" {
		t.Fatalf("unexpected payload %+v", gotBody)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(APIResponse{OK: false, Description: "Bad Request: chat not found"})
	}))
	defer server.Close()

	client := NewClient("test-token").WithBaseURL(server.URL)
	err := client.SendMessage(42, "привет", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}
