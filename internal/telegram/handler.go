package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/darkevich777/anime-quiz/internal/domain"
)

// Sender is the slice of the Bot API the webhook handler uses.
type Sender interface {
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
}

// Handler processes webhook updates. It understands the three group commands:
// /register joins the roster, /status lists players, /quiz posts the webapp link.
type Handler struct {
	service   *app.GameService
	sender    Sender
	webAppURL string
}

func NewHandler(service *app.GameService, sender Sender, webAppURL string) *Handler {
	return &Handler{service: service, sender: sender, webAppURL: webAppURL}
}

// ServeWebhook accepts Bot API updates. It always answers 200 so Telegram does
// not retry updates we failed to act on.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	h.handleUpdate(update)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleUpdate(update Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	switch command(msg.Text) {
	case "/register":
		h.handleRegister(msg)
	case "/status":
		h.handleStatus(msg)
	case "/quiz":
		h.handleQuiz(msg)
	}
}

func command(text string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	// Commands in groups arrive as /register@botname.
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

func displayName(u *User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("%d", u.ID)
}

func (h *Handler) handleRegister(msg *Message) {
	name := displayName(msg.From)
	_, err := h.service.Register(msg.Chat.ID, msg.From.ID, name)
	switch {
	case err == nil:
		h.reply(msg.Chat.ID, fmt.Sprintf("%s зарегистрировался ✅", name))
	case errors.Is(err, domain.ErrAlreadyRegistered):
		h.reply(msg.Chat.ID, "Ты уже зарегистрирован.")
	case errors.Is(err, domain.ErrLocked):
		h.reply(msg.Chat.ID, "Регистрация закрыта, игра уже идёт 🔒")
	default:
		log.Printf("telegram register: %v", err)
	}
}

func (h *Handler) handleStatus(msg *Message) {
	snap, err := h.service.Snapshot(msg.Chat.ID, msg.From.ID)
	if err != nil {
		h.reply(msg.Chat.ID, "Игры нет. Зарегистрируйтесь с помощью /register")
		return
	}
	lines := []string{"Участники:"}
	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		state := "(ждёт)"
		if p.Answered {
			state = "(ответил)"
		}
		names = append(names, fmt.Sprintf("- %s %s", p.Name, state))
	}
	sort.Strings(names)
	lines = append(lines, names...)
	h.reply(msg.Chat.ID, strings.Join(lines, "\n"))
}

func (h *Handler) handleQuiz(msg *Message) {
	if _, err := h.service.Snapshot(msg.Chat.ID, msg.From.ID); err != nil {
		h.reply(msg.Chat.ID, "Сначала зарегистрируйтесь командой /register")
		return
	}
	// The web_app button type is forbidden in groups, so the link opens as a
	// plain URL button instead.
	url := fmt.Sprintf("%s?chat_id=%d&user_id=%d", h.webAppURL, msg.Chat.ID, msg.From.ID)
	markup := InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: "🎮 Открыть квиз", URL: url},
		}},
	}
	if err := h.sender.SendMessage(msg.Chat.ID, "Нажмите кнопку, чтобы открыть квиз (WebApp):", markup); err != nil {
		log.Printf("telegram send: %v", err)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if err := h.sender.SendMessage(chatID, text, nil); err != nil {
		log.Printf("telegram send: %v", err)
	}
}
