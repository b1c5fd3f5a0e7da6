package bot

import (
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/media"
	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"gopkg.in/telebot.v4"
)

// joinPrompt lists every configured channel, not only the ones the user is
// missing, followed by the recheck button.
func joinPrompt(locks []models.ChannelLock) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(locks)+1)
	for i := range locks {
		rows = append(rows, markup.Row(markup.URL(fmt.Sprintf(textJoinButton, locks[i].Label()), locks[i].JoinURL())))
	}
	rows = append(rows, markup.Row(markup.Data(textRecheckButton, CallbackActionRecheck.String())))
	markup.Inline(rows...)
	return markup
}

func mainMenu(supportURL string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	if supportURL != "" {
		rows = append(rows, markup.Row(markup.URL(textSupportButton, supportURL)))
	}
	for _, p := range media.Platforms {
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf(textPlatformButton, p.Label()),
			CallbackActionPlatform.String(),
			string(p),
		)))
	}
	markup.Inline(rows...)
	return markup
}

func backMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(textBackButton, CallbackActionBack.String())))
	return markup
}
