package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/config"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/keyboard"
	"timetracker-bot/internal/metrics"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"
	"timetracker-bot/internal/wizard"
	"timetracker-bot/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type commandFunc func(ctx context.Context, message *tgbotapi.Message, user *models.User)

type callbackFunc func(ctx context.Context, chatID int64, user *models.User, cmd callback.Command)

// command - обработчик slash-команды и ее окно антидребезга (0 - без окна).
type command struct {
	fn           commandFunc
	cooldown     time.Duration
	unregistered bool
}

type callbackRoute struct {
	fn       callbackFunc
	cooldown time.Duration
}

type Handler struct {
	client         telegram.Sender
	userService    *service.UserService
	workLogService *service.WorkLogService
	absenceService *service.AbsenceService
	teamService    *service.TeamService
	absenceWizard  *wizard.Wizard
	sessions       *session.Manager
	config         *config.BotConfig
	logger         *logrus.Logger
	now            func() time.Time
	commands       map[string]command
	callbacks      map[callback.Kind]callbackRoute
	wg             sync.WaitGroup
}

func NewHandler(
	client telegram.Sender,
	userService *service.UserService,
	workLogService *service.WorkLogService,
	absenceService *service.AbsenceService,
	teamService *service.TeamService,
	absenceWizard *wizard.Wizard,
	sessions *session.Manager,
	cfg *config.BotConfig,
	logger *logrus.Logger,
) *Handler {
	h := &Handler{
		client:         client,
		userService:    userService,
		workLogService: workLogService,
		absenceService: absenceService,
		teamService:    teamService,
		absenceWizard:  absenceWizard,
		sessions:       sessions,
		config:         cfg,
		logger:         logger,
		now:            time.Now,
	}
	h.registerCommands()
	h.registerCallbacks()
	return h
}

// WithClock подменяет источник времени для команд, которым нужна сегодняшняя дата.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// HandleUpdates читает обновления до закрытия канала или отмены контекста.
// Обновления разных пользователей обрабатываются параллельно, одного пользователя -
// по очереди в порядке поступления.
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer h.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			chatID, ok := updateChatID(update)
			if !ok {
				continue
			}
			h.wg.Add(1)
			h.sessions.Queue.Go(chatID, func() {
				defer h.wg.Done()
				h.handleUpdate(ctx, update)
			})
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.ErrorsTotal.WithLabelValues("panic").Inc()
			h.logger.WithFields(logrus.Fields{
				"chat_id": chatID,
				"panic":   r,
			}).Error("Panic while handling update")
			h.sendText(ctx, chatID, i18n.T(ctx, "error.generic"))
		}
	}()

	ctx = i18n.WithLocale(ctx, h.config.Locale)

	// Обработка callback query (для inline кнопок)
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, chatID, update.CallbackQuery)
		return
	}

	h.handleMessage(ctx, update.Message)
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, true
	}
	return 0, false
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"command": message.Command(),
	}).Debug("Message received")

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	// Свободный текст уходит в текущий диалог пользователя
	switch state := h.sessions.Get(chatID).(type) {
	case session.AwaitingReport:
		h.saveReport(ctx, chatID, user, state.WorkLogID, message.Text, false)
	case session.EditingReport:
		h.saveReport(ctx, chatID, user, state.WorkLogID, message.Text, true)
	case session.AbsenceWizard:
		h.handleWizardText(ctx, chatID, user, message.Text)
	case session.AwaitingRejectionReason:
		h.handleRejectionReason(ctx, chatID, user, state.AbsenceID, message.Text)
	default:
		h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "idle.hint"), keyboard.Main(ctx))
	}
}

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	name := message.Command()

	cmd, ok := h.commands[name]
	if !ok {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.unknown_command"))
		return
	}

	if cmd.cooldown > 0 && h.sessions.Cooldown.IsOnCooldown(chatID, "/"+name, cmd.cooldown) {
		metrics.CooldownRejected.WithLabelValues("/" + name).Inc()
		h.sendText(ctx, chatID, i18n.T(ctx, "error.cooldown"))
		return
	}
	metrics.CommandsProcessed.WithLabelValues("/" + name).Inc()

	var user *models.User
	if !cmd.unregistered {
		var ok bool
		if user, ok = h.currentUser(ctx, chatID); !ok {
			return
		}
	}

	cmd.fn(ctx, message, user)
}

func (h *Handler) handleCallbackQuery(ctx context.Context, chatID int64, query *tgbotapi.CallbackQuery) {
	cmd, err := callback.Decode(query.Data)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Unknown callback data")
		h.answerCallback(query.ID, i18n.T(ctx, "error.unknown_button"))
		return
	}

	route, ok := h.callbacks[cmd.Kind]
	if !ok {
		h.answerCallback(query.ID, i18n.T(ctx, "error.unknown_button"))
		return
	}

	if h.sessions.Cooldown.IsOnCooldown(chatID, cmd.Data(), route.cooldown) {
		metrics.CooldownRejected.WithLabelValues(string(cmd.Kind)).Inc()
		h.answerCallback(query.ID, i18n.T(ctx, "error.cooldown"))
		return
	}

	// Отвечаем на callback (убираем "часики" у кнопки)
	h.answerCallback(query.ID, "")
	metrics.CallbacksProcessed.WithLabelValues(string(cmd.Kind)).Inc()

	user, ok := h.currentUser(ctx, chatID)
	if !ok {
		return
	}

	route.fn(ctx, chatID, user, cmd)
}

// currentUser загружает зарегистрированного пользователя или отвечает подсказкой про /start.
func (h *Handler) currentUser(ctx context.Context, chatID int64) (*models.User, bool) {
	user, err := h.userService.GetByChatID(ctx, chatID)
	if errors.Is(err, service.ErrNotFound) {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.not_registered"))
		return nil, false
	}
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to load user")
		return nil, false
	}
	if !user.Active {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.inactive"))
		return nil, false
	}
	return user, true
}

// gatewayError логирует сбой хранилища и отвечает общим "попробуйте еще раз".
func (h *Handler) gatewayError(ctx context.Context, chatID int64, err error, msg string) {
	metrics.ErrorsTotal.WithLabelValues("gateway").Inc()
	h.logger.WithError(err).WithField("chat_id", chatID).Error(msg)
	h.sendText(ctx, chatID, i18n.T(ctx, "error.generic"))
}

func (h *Handler) sendText(ctx context.Context, chatID int64, text string) {
	h.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) sendWithKeyboard(ctx context.Context, chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	h.send(ctx, msg)
}

func (h *Handler) send(_ context.Context, msg tgbotapi.MessageConfig) {
	if _, err := h.client.Send(msg); err != nil {
		metrics.ErrorsTotal.WithLabelValues("send").Inc()
		entry := h.logger.WithError(err).WithField("chat_id", msg.ChatID)
		if telegram.IsUnreachable(err) {
			entry.Debug("Reply not delivered")
			return
		}
		entry.Warn("Failed to send reply")
	}
}

func (h *Handler) answerCallback(queryID, text string) {
	if _, err := h.client.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		h.logger.WithError(err).Debug("Failed to answer callback query")
	}
}
