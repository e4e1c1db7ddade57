package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/darkevich777/anime-quiz/internal/domain"
)

type recordingSender struct {
	messages []string
	markups  []interface{}
}

func (s *recordingSender) SendMessage(_ int64, text string, replyMarkup interface{}) error {
	s.messages = append(s.messages, text)
	s.markups = append(s.markups, replyMarkup)
	return nil
}

type noQuestions struct{}

func (noQuestions) FetchQuestion(context.Context) (domain.Question, error) {
	return domain.Question{}, nil
}

func newTestHandler() (*Handler, *recordingSender, *app.GameService) {
	rules := app.DefaultRules()
	service := app.NewGameService(
		app.NewSessionStore(rules),
		app.NewRematchRegistry(rules),
		noQuestions{},
	)
	sender := &recordingSender{}
	return NewHandler(service, sender, "https://example.test/web"), sender, service
}

func sendCommand(t *testing.T, h *Handler, chatID, userID int64, name, text string) {
	t.Helper()
	update := Update{Message: &Message{
		From: &User{ID: userID, FirstName: name},
		Chat: Chat{ID: chatID},
		Text: text,
	}}
	body, _ := json.Marshal(update)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeWebhook(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook returned %d", rec.Code)
	}
}

func TestRegisterCommand(t *testing.T) {
	h, sender, service := newTestHandler()

	sendCommand(t, h, 10, 1, "Alice", "/register")
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "Alice зарегистрировался") {
		t.Fatalf("unexpected reply: %v", sender.messages)
	}

	snap, err := service.Snapshot(10, 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Players["1"].Name != "Alice" {
		t.Fatalf("player not registered: %v", snap.Players)
	}

	sendCommand(t, h, 10, 1, "Alice", "/register")
	if sender.messages[1] != "Ты уже зарегистрирован." {
		t.Fatalf("unexpected duplicate reply: %q", sender.messages[1])
	}
}

func TestRegisterCommandWithBotSuffix(t *testing.T) {
	h, sender, _ := newTestHandler()

	sendCommand(t, h, 10, 1, "Alice", "/register@anime_quiz_bot")
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "зарегистрировался") {
		t.Fatalf("suffixed command ignored: %v", sender.messages)
	}
}

func TestStatusCommand(t *testing.T) {
	h, sender, _ := newTestHandler()

	sendCommand(t, h, 10, 1, "Alice", "/status")
	if sender.messages[0] != "Игры нет. Зарегистрируйтесь с помощью /register" {
		t.Fatalf("unexpected no-game reply: %q", sender.messages[0])
	}

	sendCommand(t, h, 10, 1, "Alice", "/register")
	sendCommand(t, h, 10, 2, "Bob", "/register")
	sendCommand(t, h, 10, 1, "Alice", "/status")

	last := sender.messages[len(sender.messages)-1]
	if !strings.Contains(last, "Участники:") || !strings.Contains(last, "Alice") || !strings.Contains(last, "Bob") {
		t.Fatalf("unexpected status reply: %q", last)
	}
	if !strings.Contains(last, "(ждёт)") {
		t.Fatalf("expected waiting markers: %q", last)
	}
}

func TestQuizCommandSendsDeepLink(t *testing.T) {
	h, sender, _ := newTestHandler()

	sendCommand(t, h, 10, 1, "Alice", "/quiz")
	if sender.messages[0] != "Сначала зарегистрируйтесь командой /register" {
		t.Fatalf("unexpected reply: %q", sender.messages[0])
	}

	sendCommand(t, h, 10, 1, "Alice", "/register")
	sendCommand(t, h, 10, 1, "Alice", "/quiz")

	markup, ok := sender.markups[len(sender.markups)-1].(InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", sender.markups[len(sender.markups)-1])
	}
	button := markup.InlineKeyboard[0][0]
	if button.URL != "https://example.test/web?chat_id=10&user_id=1" {
		t.Fatalf("unexpected deep link: %q", button.URL)
	}
}

func TestNonCommandIgnored(t *testing.T) {
	h, sender, _ := newTestHandler()

	sendCommand(t, h, 10, 1, "Alice", "hello there")
	if len(sender.messages) != 0 {
		t.Fatalf("expected no reply, got %v", sender.messages)
	}
}
