package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/C4T-BuT-S4D/grabber/internal/broadcast"
	"github.com/C4T-BuT-S4D/grabber/internal/media"
	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/C4T-BuT-S4D/grabber/internal/session"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

// fakeContext implements the telebot.Context methods the handlers use.
// Anything else panics through the nil embedded interface.
type fakeContext struct {
	telebot.Context

	chat     *telebot.Chat
	sender   *telebot.User
	message  *telebot.Message
	callback *telebot.Callback
	args     []string

	responses []*telebot.CallbackResponse
	edits     []sentMessage
}

func (c *fakeContext) Update() telebot.Update { return telebot.Update{ID: 1} }

func (c *fakeContext) Chat() *telebot.Chat { return c.chat }

func (c *fakeContext) Sender() *telebot.User { return c.sender }

func (c *fakeContext) Callback() *telebot.Callback { return c.callback }

func (c *fakeContext) Args() []string { return c.args }

func (c *fakeContext) Message() *telebot.Message {
	if c.callback != nil {
		return c.callback.Message
	}
	return c.message
}

func (c *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	if len(resp) == 0 {
		resp = []*telebot.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp[0])
	return nil
}

func (c *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	c.edits = append(c.edits, sentMessage{what: what, opts: opts})
	return nil
}

func privateChat(id int64) *telebot.Chat {
	return &telebot.Chat{ID: id, Type: telebot.ChatPrivate}
}

func adminUser() *telebot.User {
	return &telebot.User{ID: admin, FirstName: "Admin"}
}

func textUpdate(sender *telebot.User, text string, args ...string) *fakeContext {
	chat := privateChat(sender.ID)
	return &fakeContext{
		chat:    chat,
		sender:  sender,
		message: &telebot.Message{ID: 7, Text: text, Chat: chat, Sender: sender},
		args:    args,
	}
}

func replyUpdate(sender *telebot.User, text string, replyTo *telebot.Message) *fakeContext {
	c := textUpdate(sender, text)
	c.message.ReplyTo = replyTo
	return c
}

func callbackUpdate(sender *telebot.User, data string) *fakeContext {
	chat := privateChat(sender.ID)
	return &fakeContext{
		chat:     chat,
		sender:   sender,
		callback: &telebot.Callback{Data: data, Sender: sender, Message: &telebot.Message{ID: 10, Chat: chat}},
	}
}

func TestWrap_IgnoresGroupChats(t *testing.T) {
	b, env := setupBot(t)

	c := textUpdate(alice(), "https://youtu.be/x")
	c.chat = &telebot.Chat{ID: -100, Type: telebot.ChatSuperGroup}

	called := false
	require.NoError(t, b.wrap("text", func(*UpdateContext) error {
		called = true
		return nil
	})(c))

	assert.False(t, called)
	assert.Empty(t, env.sender.sent)
}

func TestWrap_RecoversPanic(t *testing.T) {
	b, env := setupBot(t)

	require.NotPanics(t, func() {
		_ = b.wrap("text", func(*UpdateContext) error {
			panic("boom")
		})(textUpdate(alice(), "hi"))
	})

	toUser := env.sender.to(1)
	require.Len(t, toUser, 1)
	assert.Equal(t, textGenericError, toUser[0].what)
}

func TestWrap_RegistryErrorGetsGenericReply(t *testing.T) {
	b, env := setupBot(t)
	require.NoError(t, env.store.Close())

	require.NoError(t, b.wrap("text", b.HandleText)(textUpdate(alice(), "https://youtu.be/x")))

	toUser := env.sender.to(1)
	require.Len(t, toUser, 1)
	assert.Equal(t, textGenericError, toUser[0].what)
	assert.Empty(t, env.submitter.requests)
	assert.Zero(t, env.gate.calls)
}

func TestWrap_CallbackErrorIsAlert(t *testing.T) {
	b, env := setupBot(t)
	c := callbackUpdate(alice(), "\fback")

	require.NoError(t, b.wrap("callback", func(*UpdateContext) error {
		return errors.New("registry unavailable")
	})(c))

	require.Len(t, c.responses, 1)
	assert.Equal(t, textGenericError, c.responses[0].Text)
	assert.True(t, c.responses[0].ShowAlert)
	assert.Empty(t, env.sender.sent)
}

func TestHandleText_SkipsCommands(t *testing.T) {
	b, env := setupBot(t)

	require.NoError(t, b.wrap("text", b.HandleText)(textUpdate(alice(), "/unknown")))

	assert.Empty(t, env.submitter.requests)
	assert.Empty(t, env.sender.sent)
}

func TestHandleCallback_PlatformSelection(t *testing.T) {
	b, _ := setupBot(t)

	c := callbackUpdate(alice(), "\fplatform|youtube")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	sc := b.Sessions.Get(1)
	assert.Equal(t, session.StateAwaitingLink, sc.State)
	assert.Equal(t, media.PlatformYouTube, sc.Platform)

	require.Len(t, c.responses, 1)
	require.Len(t, c.edits, 1)
	assert.Equal(t, "Please send the YouTube link:", c.edits[0].what)
	markup := c.edits[0].opts[0].(*telebot.ReplyMarkup)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, CallbackActionBack.String(), markup.InlineKeyboard[0][0].Unique)
}

func TestHandleCallback_RoutedUniqueAndData(t *testing.T) {
	b, _ := setupBot(t)

	c := callbackUpdate(alice(), "instagram")
	c.callback.Unique = CallbackActionPlatform.String()
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	assert.Equal(t, media.PlatformInstagram, b.Sessions.Get(1).Platform)
}

func TestHandleCallback_UnknownPlatform(t *testing.T) {
	b, _ := setupBot(t)

	c := callbackUpdate(alice(), "\fplatform|myspace")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	assert.Equal(t, session.StateIdle, b.Sessions.Get(1).State)
	assert.Len(t, c.responses, 1)
	assert.Empty(t, c.edits)
}

func TestHandleCallback_Back(t *testing.T) {
	b, _ := setupBot(t)
	b.Sessions.SelectPlatform(1, media.PlatformTikTok)

	c := callbackUpdate(alice(), "\fback")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	assert.Equal(t, session.StateIdle, b.Sessions.Get(1).State)
	require.Len(t, c.edits, 1)
	assert.Equal(t, textMainMenu, c.edits[0].what)
}

func TestHandleCallback_RecheckConfirmed(t *testing.T) {
	b, env := setupBot(t)

	c := callbackUpdate(alice(), "\frecheck")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	require.Len(t, c.responses, 1)
	assert.Equal(t, textJoinConfirmed, c.responses[0].Text)
	require.Len(t, c.edits, 1)
	assert.Equal(t, textMainMenu, c.edits[0].what)

	_, err := env.store.GetUser(context.Background(), 1)
	assert.NoError(t, err, "passing the recheck registers the user")
}

func TestHandleCallback_RecheckStillMissing(t *testing.T) {
	b, env := setupBot(t)
	env.gate.satisfied = false
	env.gate.locks = []models.ChannelLock{{Handle: "@one"}, {Handle: "@two"}}
	b.Sessions.SelectPlatform(1, media.PlatformYouTube)

	c := callbackUpdate(alice(), "\frecheck")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	require.Len(t, c.responses, 1)
	assert.Equal(t, textStillNotJoined, c.responses[0].Text)
	assert.True(t, c.responses[0].ShowAlert)

	require.Len(t, c.edits, 1)
	assert.Equal(t, textJoinRequired, c.edits[0].what)
	markup := c.edits[0].opts[0].(*telebot.ReplyMarkup)
	assert.Len(t, markup.InlineKeyboard, 3)

	assert.Equal(t, session.StateAwaitingLink, b.Sessions.Get(1).State, "a failed recheck leaves the menu state alone")
}

func TestHandleCallback_BlockedUserGetsAlert(t *testing.T) {
	b, env := setupBot(t)
	ctx := context.Background()

	_, _, err := env.store.GetOrCreateUser(ctx, 1, "Alice Liddell", "alice")
	require.NoError(t, err)
	require.NoError(t, env.mod.Block(ctx, admin, 1))

	c := callbackUpdate(alice(), "\fplatform|tiktok")
	require.NoError(t, b.wrap("callback", b.HandleCallback)(c))

	require.Len(t, c.responses, 1)
	assert.Equal(t, textBlocked, c.responses[0].Text)
	assert.True(t, c.responses[0].ShowAlert)
	assert.Empty(t, c.edits)
	assert.Zero(t, env.gate.calls)
	assert.Equal(t, session.StateIdle, b.Sessions.Get(1).State)
}

func TestAdminCommands_SilentForOthers(t *testing.T) {
	b, env := setupBot(t)
	ctx := context.Background()

	_, _, err := env.store.GetOrCreateUser(ctx, 2, "Bob", "bob")
	require.NoError(t, err)

	photo := &telebot.Message{ID: 3, Photo: &telebot.Photo{File: telebot.File{FileID: "p1"}}}
	for name, tc := range map[string]struct {
		handler func(*UpdateContext) error
		update  *fakeContext
	}{
		"setstart":   {b.HandleSetStart, replyUpdate(alice(), "/setstart", photo)},
		"broadcast":  {b.HandleBroadcast, replyUpdate(alice(), "/broadcast", photo)},
		"block":      {b.HandleBlock, textUpdate(alice(), "/block 2", "2")},
		"unblock":    {b.HandleUnblock, textUpdate(alice(), "/unblock 2", "2")},
		"addlock":    {b.HandleAddLock, textUpdate(alice(), "/addlock @x", "@x")},
		"removelock": {b.HandleRemoveLock, textUpdate(alice(), "/removelock @x", "@x")},
		"stats":      {b.HandleStats, textUpdate(alice(), "/stats")},
	} {
		require.NoError(t, b.wrap(name, tc.handler)(tc.update), name)
	}

	assert.Empty(t, env.sender.sent)
	assert.Zero(t, env.runner.jobs)
	assert.Empty(t, env.copier.delivered)

	user, err := env.store.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, user.Blocked)

	locks, err := env.store.ListChannelLocks(ctx)
	require.NoError(t, err)
	assert.Empty(t, locks)

	_, err = env.store.GetStartupSettings(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdminBlockCommand(t *testing.T) {
	b, env := setupBot(t)
	ctx := context.Background()

	_, _, err := env.store.GetOrCreateUser(ctx, 2, "Bob", "bob")
	require.NoError(t, err)

	block := b.wrap("block", b.HandleBlock)
	require.NoError(t, block(textUpdate(adminUser(), "/block")))
	require.NoError(t, block(textUpdate(adminUser(), "/block bob", "bob")))
	require.NoError(t, block(textUpdate(adminUser(), "/block 77", "77")))
	require.NoError(t, block(textUpdate(adminUser(), "/block 2", "2")))

	var replies []interface{}
	for _, m := range env.sender.to(admin) {
		replies = append(replies, m.what)
	}
	assert.Equal(t, []interface{}{
		"Usage: /block <numeric user id>",
		textUserNotFound,
		fmt.Sprintf(textUserBlocked, 2),
	}, replies)

	user, err := env.store.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.True(t, user.Blocked)

	require.NoError(t, b.wrap("unblock", b.HandleUnblock)(textUpdate(adminUser(), "/unblock 2", "2")))
	user, err = env.store.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, user.Blocked)
}

func TestAdminLockCommands(t *testing.T) {
	b, env := setupBot(t)

	addLock := b.wrap("addlock", b.HandleAddLock)
	removeLock := b.wrap("removelock", b.HandleRemoveLock)

	require.NoError(t, addLock(textUpdate(adminUser(), "/addlock News", "News")))
	require.NoError(t, addLock(textUpdate(adminUser(), "/addlock @news", "@news")))
	require.NoError(t, removeLock(textUpdate(adminUser(), "/removelock t.me/news", "t.me/news")))
	require.NoError(t, removeLock(textUpdate(adminUser(), "/removelock @news", "@news")))

	var replies []interface{}
	for _, m := range env.sender.to(admin) {
		replies = append(replies, m.what)
	}
	assert.Equal(t, []interface{}{
		fmt.Sprintf(textLockAdded, "@news"),
		textLockExists,
		fmt.Sprintf(textLockRemoved, "@news"),
		textLockMissing,
	}, replies)
}

func TestAdminSetStartCommand(t *testing.T) {
	b, env := setupBot(t)
	ctx := context.Background()

	setStart := b.wrap("setstart", b.HandleSetStart)
	require.NoError(t, setStart(replyUpdate(adminUser(), "/setstart", &telebot.Message{ID: 3, Text: "not media"})))
	require.NoError(t, setStart(replyUpdate(adminUser(), "/setstart", &telebot.Message{
		ID:      4,
		Photo:   &telebot.Photo{File: telebot.File{FileID: "p1"}},
		Caption: "Hello!",
	})))

	toAdmin := env.sender.to(admin)
	require.Len(t, toAdmin, 2)
	assert.Equal(t, textBannerUsage, toAdmin[0].what)
	assert.Equal(t, textBannerSaved, toAdmin[1].what)

	settings, err := env.store.GetStartupSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", settings.MediaRef)
	assert.Equal(t, models.MediaKindPhoto, settings.MediaKind)
	assert.Equal(t, "Hello!", settings.Caption)
}

func TestAdminStatsCommand(t *testing.T) {
	b, env := setupBot(t)

	_, _, err := env.store.GetOrCreateUser(context.Background(), 2, "Bob", "bob")
	require.NoError(t, err)

	require.NoError(t, b.wrap("stats", b.HandleStats)(textUpdate(adminUser(), "/stats")))

	toAdmin := env.sender.to(admin)
	require.Len(t, toAdmin, 1)
	assert.Equal(t, fmt.Sprintf(textStats, 1, 0, 0), toAdmin[0].what)
}

func TestHandleBroadcast_SingleConfirmation(t *testing.T) {
	b, env := setupBot(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, _, err := env.store.GetOrCreateUser(ctx, id, fmt.Sprintf("user %d", id), "")
		require.NoError(t, err)
	}
	require.NoError(t, env.mod.Block(ctx, admin, 3))
	env.copier.unreached["2"] = true

	require.NoError(t, b.wrap("broadcast", b.HandleBroadcast)(replyUpdate(adminUser(), "/broadcast", &telebot.Message{ID: 5, Text: "news"})))

	assert.Equal(t, 1, env.runner.jobs)
	assert.Equal(t, []string{"1"}, env.copier.delivered, "blocked users are skipped")

	toAdmin := env.sender.to(admin)
	require.Len(t, toAdmin, 1)
	assert.Equal(t, fmt.Sprintf(textBroadcastDone, broadcast.Report{Total: 2, Delivered: 1, Failed: 1}), toAdmin[0].what)
}

func TestHandleBroadcast_NeedsReply(t *testing.T) {
	b, env := setupBot(t)

	require.NoError(t, b.wrap("broadcast", b.HandleBroadcast)(textUpdate(adminUser(), "/broadcast")))

	assert.Zero(t, env.runner.jobs)
	assert.Empty(t, env.sender.sent)
}
