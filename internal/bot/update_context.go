package bot

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

// UpdateContext carries the handler deadline and a logger tagged with the
// update it serves.
type UpdateContext struct {
	context.Context
	tc  telebot.Context
	log *logrus.Entry
}

func NewUpdateContext(c context.Context, tc telebot.Context, handler string) *UpdateContext {
	fields := logrus.Fields{
		"update_id": tc.Update().ID,
		"handler":   handler,
	}
	if chat := tc.Chat(); chat != nil {
		fields["chat_id"] = chat.ID
		fields["chat_type"] = chat.Type
	}
	if sender := tc.Sender(); sender != nil {
		fields["sender_id"] = sender.ID
		fields["sender_username"] = sender.Username
	}
	if cb := tc.Callback(); cb != nil {
		fields["callback_unique"] = cb.Unique
	}

	return &UpdateContext{
		Context: c,
		tc:      tc,
		log:     logrus.WithFields(fields),
	}
}

func (uc *UpdateContext) L() *logrus.Entry {
	return uc.log
}

func (uc *UpdateContext) TC() telebot.Context {
	return uc.tc
}

func (uc *UpdateContext) Message() *telebot.Message {
	return uc.tc.Message()
}

func (uc *UpdateContext) Chat() *telebot.Chat {
	return uc.tc.Chat()
}

func (uc *UpdateContext) Sender() *telebot.User {
	return uc.tc.Sender()
}

func (uc *UpdateContext) Callback() *telebot.Callback {
	return uc.tc.Callback()
}

func (uc *UpdateContext) Args() []string {
	return uc.tc.Args()
}

// FullName is the display name used in admin reports.
func FullName(u *telebot.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func Handle(u *telebot.User) string {
	if u.Username == "" {
		return "-"
	}
	return "@" + u.Username
}
