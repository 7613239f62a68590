// Package keyboard builds the inline keyboards the bot attaches to messages.
package keyboard

import (
	"context"

	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/i18n"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func button(ctx context.Context, label string, cmd callback.Command) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(i18n.T(ctx, label), cmd.Data())
}

func simple(kind callback.Kind) callback.Command {
	return callback.Command{Kind: kind}
}

// Main - основное меню отметок.
func Main(ctx context.Context) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.arrived_office", simple(callback.KindArrivedOffice)),
			button(ctx, "button.arrived_remote", simple(callback.KindArrivedRemote)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.lunch_start", simple(callback.KindLunchStart)),
			button(ctx, "button.lunch_end", simple(callback.KindLunchEnd)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.left_work", simple(callback.KindLeftWork)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.sick_day", simple(callback.KindSickDay)),
			button(ctx, "button.vacation_day", simple(callback.KindVacationDay)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.my_stats", simple(callback.KindMyStats)),
			button(ctx, "button.request_absence", simple(callback.KindRequestAbsence)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.my_absences", simple(callback.KindMyAbsences)),
		),
	)
}

// Arrival - кнопки прихода для напоминания.
func Arrival(ctx context.Context) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.arrived_office", simple(callback.KindArrivedOffice)),
			button(ctx, "button.arrived_remote", simple(callback.KindArrivedRemote)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.sick_day", simple(callback.KindSickDay)),
		),
	)
}

// AbsenceTypes - выбор типа заявки.
func AbsenceTypes(ctx context.Context) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "absence_type.vacation", simple(callback.KindAbsenceVacation)),
			button(ctx, "absence_type.sick", simple(callback.KindAbsenceSick)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "absence_type.business_trip", simple(callback.KindAbsenceBusinessTrip)),
			button(ctx, "absence_type.day_off", simple(callback.KindAbsenceDayOff)),
		),
	)
}

// Moderation - кнопки согласования заявки для менеджера.
func Moderation(ctx context.Context, absenceID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(ctx, "button.approve", callback.Approve(absenceID)),
			button(ctx, "button.reject", callback.Reject(absenceID)),
		),
	)
}
