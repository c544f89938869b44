package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBotServer(t *testing.T, sent *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Rebate","username":"rebate_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.Form.Get("chat_id") == "403" {
				fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
				return
			}
			if r.Form.Get("parse_mode") != "Markdown" {
				t.Errorf("Expected Markdown parse mode, got %q", r.Form.Get("parse_mode"))
			}
			*sent = append(*sent, r.Form.Get("chat_id")+":"+r.Form.Get("text"))
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
}

func TestTelegramMessenger_SendMessage(t *testing.T) {
	var sent []string
	server := newBotServer(t, &sent)
	defer server.Close()

	messenger, err := NewTelegramMessengerWithEndpoint("token", server.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if messenger.BotName() != "rebate_bot" {
		t.Errorf("Expected bot name rebate_bot, got %q", messenger.BotName())
	}

	if err := messenger.SendMessage(context.Background(), "42", "*hello*"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sent) != 1 || sent[0] != "42:*hello*" {
		t.Errorf("Unexpected sent messages %v", sent)
	}
}

func TestTelegramMessenger_Errors(t *testing.T) {
	var sent []string
	server := newBotServer(t, &sent)
	defer server.Close()

	messenger, err := NewTelegramMessengerWithEndpoint("token", server.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	testCases := []struct {
		name   string
		ctx    func() context.Context
		chatID string
	}{
		{"blocked by user", context.Background, "403"},
		{"non numeric chat id", context.Background, "@someone"},
		{"cancelled context", func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}, "42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := messenger.SendMessage(tc.ctx(), tc.chatID, "text"); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
	if len(sent) != 0 {
		t.Errorf("Expected nothing delivered, got %v", sent)
	}
}
