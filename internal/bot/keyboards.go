package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
)

const (
	commandStart    = "start"
	commandActivity = "activity"
	commandProceed  = "proceed"
	commandEvents   = "events"

	buttonProceed  = "Proceed"
	buttonActivity = "Show progress"
)

// keyboardFor returns the reply markup for the stage the session is in:
// option buttons while onboarding asks a fixed choice, the action menu once
// the free dialogue has started, and no keyboard otherwise.
func keyboardFor(stage onboarding.Stage) any {
	if opts := onboarding.Options(stage); len(opts) > 0 {
		row := make([]tgbotapi.KeyboardButton, 0, len(opts))
		for _, o := range opts {
			row = append(row, tgbotapi.NewKeyboardButton(o))
		}

		kb := tgbotapi.NewReplyKeyboard(row)
		kb.OneTimeKeyboard = true

		return kb
	}

	if stage == onboarding.StageDone {
		return ActionMenu()
	}

	return tgbotapi.NewRemoveKeyboard(true)
}

func ActionMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonProceed),
			tgbotapi.NewKeyboardButton(buttonActivity),
		),
	)
}
