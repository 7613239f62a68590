package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// showUsers показывает всех активных пользователей (только для админов)
func (h *Handler) showUsers(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	if !user.IsAdmin() {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.admin_only"))
		return
	}

	users, err := h.userService.Active(ctx)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to list users")
		return
	}
	if len(users) == 0 {
		h.sendText(ctx, chatID, i18n.T(ctx, "users.empty"))
		return
	}

	lines := []string{i18n.T(ctx, "users.header", map[string]any{"Count": len(users)})}
	for _, u := range users {
		lines = append(lines, i18n.T(ctx, "users.line", map[string]any{
			"Name":   u.DisplayName(),
			"ChatID": u.ChatID,
			"Role":   format.Role(ctx, u.Role),
		}))
	}
	h.sendText(ctx, chatID, strings.Join(lines, "\n"))
}

// showStats показывает статистику (только для админов)
func (h *Handler) showStats(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	if !user.IsAdmin() {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.admin_only"))
		return
	}

	total, moderators, err := h.userService.GetStats(ctx)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to get user stats")
		return
	}

	h.sendText(ctx, chatID, i18n.T(ctx, "stats.text", map[string]any{
		"Total":      total,
		"Moderators": moderators,
		"Employees":  total - moderators,
	}))
}

// promote меняет роль: /promote <chat_id> <employee|manager|admin>
func (h *Handler) promote(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	if !user.IsAdmin() {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.admin_only"))
		return
	}

	parts := strings.Fields(message.CommandArguments())
	if len(parts) != 2 {
		h.sendText(ctx, chatID, i18n.T(ctx, "promote.usage"))
		return
	}

	targetChatID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		h.sendText(ctx, chatID, i18n.T(ctx, "promote.usage"))
		return
	}
	role, ok := models.ParseRole(parts[1])
	if !ok {
		h.sendText(ctx, chatID, i18n.T(ctx, "promote.usage"))
		return
	}

	target, err := h.userService.Promote(ctx, user, targetChatID, role)
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.sendText(ctx, chatID, i18n.T(ctx, "promote.not_found", map[string]any{"ChatID": targetChatID}))
		return
	case errors.Is(err, service.ErrForbidden):
		h.sendText(ctx, chatID, i18n.T(ctx, "error.admin_only"))
		return
	case err != nil:
		h.gatewayError(ctx, chatID, err, "Failed to change role")
		return
	}

	h.sendText(ctx, chatID, i18n.T(ctx, "promote.done", map[string]any{
		"Name": target.DisplayName(),
		"Role": format.Role(ctx, target.Role),
	}))
}
