package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/C4T-BuT-S4D/grabber/internal/broadcast"
	"github.com/C4T-BuT-S4D/grabber/internal/config"
	"github.com/C4T-BuT-S4D/grabber/internal/deeplink"
	"github.com/C4T-BuT-S4D/grabber/internal/media"
	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/C4T-BuT-S4D/grabber/internal/moderation"
	"github.com/C4T-BuT-S4D/grabber/internal/session"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Submitter interface {
	Submit(req media.Request) error
}

type SettingsStore interface {
	GetStartupSettings(ctx context.Context) (*models.StartupSettings, error)
}

// Router is the part of *telebot.Bot handlers are registered on.
type Router interface {
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
}

type Deps struct {
	Sender      Sender
	Guard       *Guard
	Sessions    *session.Store
	Pipeline    Submitter
	Broadcaster *broadcast.Broadcaster
	Moderation  *moderation.Service
	Links       *deeplink.Links
	Settings    SettingsStore
	Background  media.Runner
}

type Bot struct {
	config *config.Config
	Deps
}

func New(cfg *config.Config, deps Deps) *Bot {
	return &Bot{
		config: cfg,
		Deps:   deps,
	}
}

func (b *Bot) Register(r Router) {
	r.Handle("/start", b.wrap("start", b.HandleStart))
	r.Handle(telebot.OnText, b.wrap("text", b.HandleText))
	r.Handle(telebot.OnCallback, b.wrap("callback", b.HandleCallback))
	r.Handle(telebot.OnQuery, b.wrap("inline_query", b.HandleInlineQuery))
	r.Handle(telebot.OnInlineResult, b.wrap("inline_result", b.HandleInlineResult))

	r.Handle("/setstart", b.wrap("setstart", b.HandleSetStart))
	r.Handle("/broadcast", b.wrap("broadcast", b.HandleBroadcast))
	r.Handle("/block", b.wrap("block", b.HandleBlock))
	r.Handle("/unblock", b.wrap("unblock", b.HandleUnblock))
	r.Handle("/addlock", b.wrap("addlock", b.HandleAddLock))
	r.Handle("/removelock", b.wrap("removelock", b.HandleRemoveLock))
	r.Handle("/stats", b.wrap("stats", b.HandleStats))
}

func (b *Bot) wrap(name string, h func(uc *UpdateContext) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), b.config.BotHandleTimeout)
		defer cancel()

		uc := NewUpdateContext(ctx, c, name)

		if c.Chat() != nil && c.Chat().Type != telebot.ChatPrivate {
			uc.L().Debugf("ignoring %s from non-private chat %d", name, c.Chat().ID)
			return nil
		}
		if c.Sender() == nil {
			uc.L().Debugf("ignoring %s without sender", name)
			return nil
		}

		defer func() {
			if r := recover(); r != nil {
				uc.L().Errorf("%s handler panicked: %v", name, r)
				b.replyError(uc)
			}
		}()

		uc.L().Debug("handling update")
		if err := h(uc); err != nil {
			uc.L().Errorf("failed to handle %s: %v", name, err)
			b.replyError(uc)
		}
		return nil
	}
}

func (b *Bot) replyError(uc *UpdateContext) {
	var err error
	switch {
	case uc.Callback() != nil:
		err = uc.TC().Respond(&telebot.CallbackResponse{Text: textGenericError, ShowAlert: true})
	case uc.Chat() != nil:
		_, err = b.Sender.Send(uc.Chat(), textGenericError)
	default:
		return
	}
	if err != nil {
		uc.L().Warnf("sending error reply: %v", err)
	}
}

// admit runs the guard and answers refused users in chat. It reports whether
// the caller may proceed.
func (b *Bot) admit(ctx context.Context, sender *telebot.User, chatID int64) (bool, error) {
	adm, err := b.Guard.Admit(ctx, sender)
	if err != nil {
		return false, err
	}

	to := telebot.ChatID(chatID)
	switch adm.Verdict {
	case VerdictBlocked:
		_, err = b.Sender.Send(to, textBlocked)
	case VerdictJoinRequired:
		_, err = b.Sender.Send(to, textJoinRequired, joinPrompt(adm.Locks))
	default:
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("sending %s reply: %w", adm.Verdict, err)
	}
	return false, nil
}

func (b *Bot) HandleStart(uc *UpdateContext) error {
	return b.start(uc, uc.Sender(), uc.Chat().ID, strings.TrimSpace(uc.Message().Payload))
}

func (b *Bot) start(ctx context.Context, sender *telebot.User, chatID int64, payload string) error {
	ok, err := b.admit(ctx, sender, chatID)
	if err != nil || !ok {
		return err
	}

	if payload != "" {
		link, err := b.Links.Decode(payload)
		if err == nil {
			return b.submit(sender, chatID, link, media.SourceDeepLink)
		}
		logrus.WithField("user_id", sender.ID).Infof("ignoring start payload %q: %v", payload, err)
	}

	b.Sessions.Back(sender.ID)
	return b.welcome(ctx, chatID)
}

func (b *Bot) welcome(ctx context.Context, chatID int64) error {
	to := telebot.ChatID(chatID)

	settings, err := b.Settings.GetStartupSettings(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		logrus.Warnf("loading startup settings: %v", err)
	default:
		if _, err := b.Sender.Send(to, banner(settings)); err != nil {
			logrus.Warnf("sending start banner to %d: %v", chatID, err)
		}
	}

	if _, err := b.Sender.Send(to, textMainMenu, mainMenu(b.config.SupportURL)); err != nil {
		return fmt.Errorf("sending main menu: %w", err)
	}
	return nil
}

func banner(settings *models.StartupSettings) telebot.Sendable {
	file := telebot.File{FileID: settings.MediaRef}
	if settings.MediaKind == models.MediaKindVideo {
		return &telebot.Video{File: file, Caption: settings.Caption}
	}
	return &telebot.Photo{File: file, Caption: settings.Caption}
}

func (b *Bot) HandleText(uc *UpdateContext) error {
	text := strings.TrimSpace(uc.Message().Text)
	if text == "" || strings.HasPrefix(text, "/") {
		uc.L().Debugf("ignoring unknown command or empty text")
		return nil
	}
	return b.routeText(uc, uc.Sender(), uc.Chat().ID, text)
}

// routeText treats any free text from an admitted user as a link. The stored
// menu selection is only logged.
func (b *Bot) routeText(ctx context.Context, sender *telebot.User, chatID int64, text string) error {
	ok, err := b.admit(ctx, sender, chatID)
	if err != nil || !ok {
		return err
	}

	sc := b.Sessions.Get(sender.ID)
	logrus.WithFields(logrus.Fields{
		"user_id":  sender.ID,
		"state":    sc.State,
		"selected": sc.Platform.Label(),
	}).Debugf("received link")

	return b.submit(sender, chatID, text, media.SourceMessage)
}

func (b *Bot) submit(sender *telebot.User, chatID int64, link string, source media.Source) error {
	if err := b.Pipeline.Submit(media.Request{
		ChatID:   chatID,
		UserID:   sender.ID,
		FullName: FullName(sender),
		Username: sender.Username,
		Link:     link,
		Source:   source,
	}); err != nil {
		return fmt.Errorf("submitting link: %w", err)
	}
	return nil
}

func (b *Bot) HandleCallback(uc *UpdateContext) error {
	cb := uc.Callback()
	data := cb.Data
	if cb.Unique != "" {
		data = "\f" + cb.Unique + "|" + cb.Data
	}

	action, payload, ok := ParseCallback(data)
	if !ok {
		uc.L().Debugf("unknown callback data %q", cb.Data)
		return uc.TC().Respond()
	}

	adm, err := b.Guard.Admit(uc, uc.Sender())
	if err != nil {
		return err
	}

	switch adm.Verdict {
	case VerdictBlocked:
		return uc.TC().Respond(&telebot.CallbackResponse{Text: textBlocked, ShowAlert: true})

	case VerdictJoinRequired:
		resp := &telebot.CallbackResponse{}
		if action == CallbackActionRecheck {
			resp = &telebot.CallbackResponse{Text: textStillNotJoined, ShowAlert: true}
		}
		if err := uc.TC().Respond(resp); err != nil {
			uc.L().Warnf("answering callback: %v", err)
		}
		b.edit(uc, textJoinRequired, joinPrompt(adm.Locks))
		return nil
	}

	switch action {
	case CallbackActionRecheck:
		if err := uc.TC().Respond(&telebot.CallbackResponse{Text: textJoinConfirmed}); err != nil {
			uc.L().Warnf("answering callback: %v", err)
		}
		b.Sessions.Back(uc.Sender().ID)
		b.edit(uc, textMainMenu, mainMenu(b.config.SupportURL))

	case CallbackActionBack:
		if err := uc.TC().Respond(); err != nil {
			uc.L().Warnf("answering callback: %v", err)
		}
		b.Sessions.Back(uc.Sender().ID)
		b.edit(uc, textMainMenu, mainMenu(b.config.SupportURL))

	case CallbackActionPlatform:
		if err := uc.TC().Respond(); err != nil {
			uc.L().Warnf("answering callback: %v", err)
		}
		platform, ok := media.ParsePlatform(payload)
		if !ok {
			uc.L().Debugf("unknown platform %q", payload)
			return nil
		}
		b.Sessions.SelectPlatform(uc.Sender().ID, platform)
		b.edit(uc, fmt.Sprintf(textSendLink, platform.Label()), backMenu())
	}

	return nil
}

// edit replaces the callback message. Telegram rejects edits that change
// nothing, which is expected when the user taps the same button twice.
func (b *Bot) edit(uc *UpdateContext, text string, markup *telebot.ReplyMarkup) {
	if err := uc.TC().Edit(text, markup); err != nil {
		uc.L().Debugf("editing callback message: %v", err)
	}
}

func (b *Bot) HandleInlineQuery(uc *UpdateContext) error {
	q := uc.TC().Query()
	link := strings.TrimSpace(q.Text)
	if link == "" {
		return nil
	}

	blocked, err := b.Guard.IsBlocked(uc, uc.Sender().ID)
	if err != nil {
		return err
	}
	if blocked {
		return uc.TC().Answer(&telebot.QueryResponse{Results: telebot.Results{}, IsPersonal: true})
	}

	return uc.TC().Answer(inlineResponse(link, b.Links.Encode(link)))
}

func inlineResponse(link, payload string) *telebot.QueryResponse {
	platform := media.Classify(link)
	result := &telebot.ArticleResult{
		ResultBase: telebot.ResultBase{
			Content: &telebot.InputTextMessageContent{Text: fmt.Sprintf(textInlineMessage, link)},
		},
		Title:       fmt.Sprintf(textInlineTitle, platform.Label()),
		Description: textInlineHint,
	}
	result.SetResultID(uuid.NewString())

	return &telebot.QueryResponse{
		Results:    telebot.Results{result},
		CacheTime:  0,
		IsPersonal: true,
		Button: &telebot.QueryResponseButton{
			Text:  textInlineStart,
			Start: payload,
		},
	}
}

func (b *Bot) HandleInlineResult(uc *UpdateContext) error {
	res := uc.TC().InlineResult()
	sender := uc.Sender()

	blocked, err := b.Guard.IsBlocked(uc, sender.ID)
	if err != nil {
		return err
	}
	if blocked {
		uc.L().Debugf("dropping inline report of blocked user")
		return nil
	}

	b.notifyAdmin(uc.L(), fmt.Sprintf(textInlineReport, FullName(sender), Handle(sender), sender.ID, res.Query))
	return nil
}

// notifyAdmin is best-effort: failures are logged and dropped.
func (b *Bot) notifyAdmin(log *logrus.Entry, text string) {
	if b.config.AdminID == 0 {
		return
	}
	if _, err := b.Sender.Send(telebot.ChatID(b.config.AdminID), text); err != nil {
		log.Warnf("notifying admin: %v", err)
	}
}
