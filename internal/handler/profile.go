package handler

import (
	"context"

	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/keyboard"
	"timetracker-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// start регистрирует пользователя и показывает главное меню
func (h *Handler) start(ctx context.Context, message *tgbotapi.Message, _ *models.User) {
	chatID := message.Chat.ID

	var username, firstName, lastName string
	if message.From != nil {
		username, firstName, lastName = message.From.UserName, message.From.FirstName, message.From.LastName
	}

	user, created, err := h.userService.Register(ctx, chatID, username, firstName, lastName)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to register user")
		return
	}

	id := "start.welcome_back"
	if created {
		id = "start.welcome"
	}
	h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, id, map[string]any{
		"Name": user.DisplayName(),
	}), keyboard.Main(ctx))
}

// help показывает команды, доступные роли пользователя
func (h *Handler) help(ctx context.Context, message *tgbotapi.Message, _ *models.User) {
	chatID := message.Chat.ID
	text := i18n.T(ctx, "help.employee")

	user, err := h.userService.GetByChatID(ctx, chatID)
	if err == nil && user.CanModerate() {
		text += "\n\n" + i18n.T(ctx, "help.manager")
	}
	if err == nil && user.IsAdmin() {
		text += "\n" + i18n.T(ctx, "help.admin")
	}

	h.sendText(ctx, chatID, text)
}

func (h *Handler) myProfile(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	username := "—"
	if user.Username != "" {
		username = "@" + user.Username
	}

	h.sendText(ctx, message.Chat.ID, i18n.T(ctx, "profile.text", map[string]any{
		"Name":     user.DisplayName(),
		"Username": username,
		"ChatID":   user.ChatID,
		"Role":     format.Role(ctx, user.Role),
		"Since":    format.Date(user.CreatedAt),
	}))
}
