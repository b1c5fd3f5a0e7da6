package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/C4T-BuT-S4D/grabber/internal/moderation"
)

// adminOnly drops the update without replying unless it comes from the admin.
func (b *Bot) adminOnly(uc *UpdateContext) bool {
	if err := b.Moderation.Authorize(uc.Sender().ID); err != nil {
		uc.L().Debugf("ignoring admin command: %v", err)
		return false
	}
	return true
}

func (b *Bot) reply(uc *UpdateContext, text string) error {
	if _, err := b.Sender.Send(uc.Chat(), text); err != nil {
		return fmt.Errorf("replying: %w", err)
	}
	return nil
}

func (b *Bot) HandleSetStart(uc *UpdateContext) error {
	if !b.adminOnly(uc) {
		return nil
	}

	source := uc.Message().ReplyTo
	if source == nil {
		return nil
	}

	var (
		ref  string
		kind models.MediaKind
	)
	switch {
	case source.Photo != nil:
		ref, kind = source.Photo.FileID, models.MediaKindPhoto
	case source.Video != nil:
		ref, kind = source.Video.FileID, models.MediaKindVideo
	default:
		return b.reply(uc, textBannerUsage)
	}

	if err := b.Moderation.SetStartupSettings(uc, uc.Sender().ID, ref, kind, source.Caption); err != nil {
		return fmt.Errorf("saving start banner: %w", err)
	}
	return b.reply(uc, textBannerSaved)
}

func (b *Bot) HandleBroadcast(uc *UpdateContext) error {
	if !b.adminOnly(uc) {
		return nil
	}

	source := uc.Message().ReplyTo
	if source == nil {
		return nil
	}
	ref := models.MessageRef{ChatID: uc.Chat().ID, MessageID: source.ID}

	log := uc.L().WithField("source", ref.String())
	log.Infof("starting broadcast")

	b.Background.Go("broadcast", func(ctx context.Context) {
		report, err := b.Broadcaster.Run(ctx, ref)
		log.Infof("broadcast finished: %s (err=%v)", report, err)

		text := fmt.Sprintf(textBroadcastDone, report)
		if err != nil {
			text = fmt.Sprintf(textBroadcastFailed, report, err)
		}
		b.notifyAdmin(log, text)
	})
	return nil
}

func (b *Bot) HandleBlock(uc *UpdateContext) error {
	return b.setBlocked(uc, "block", true)
}

func (b *Bot) HandleUnblock(uc *UpdateContext) error {
	return b.setBlocked(uc, "unblock", false)
}

func (b *Bot) setBlocked(uc *UpdateContext, command string, blocked bool) error {
	if !b.adminOnly(uc) {
		return nil
	}

	args := uc.Args()
	if len(args) == 0 {
		return nil
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(uc, fmt.Sprintf(textUserIDUsage, command))
	}

	op, done := b.Moderation.Unblock, textUserUnblocked
	if blocked {
		op, done = b.Moderation.Block, textUserBlocked
	}

	switch err := op(uc, uc.Sender().ID, target); {
	case errors.Is(err, moderation.ErrUserNotFound):
		return b.reply(uc, textUserNotFound)
	case err != nil:
		return err
	}
	return b.reply(uc, fmt.Sprintf(done, target))
}

func (b *Bot) HandleAddLock(uc *UpdateContext) error {
	if !b.adminOnly(uc) {
		return nil
	}

	args := uc.Args()
	if len(args) == 0 {
		return nil
	}

	added, err := b.Moderation.AddLock(uc, uc.Sender().ID, args[0])
	switch {
	case errors.Is(err, moderation.ErrInvalidHandle):
		return b.reply(uc, fmt.Sprintf(textLockInvalid, "addlock"))
	case err != nil:
		return err
	case !added:
		return b.reply(uc, textLockExists)
	}
	return b.reply(uc, fmt.Sprintf(textLockAdded, models.NormalizeHandle(args[0])))
}

func (b *Bot) HandleRemoveLock(uc *UpdateContext) error {
	if !b.adminOnly(uc) {
		return nil
	}

	args := uc.Args()
	if len(args) == 0 {
		return nil
	}

	removed, err := b.Moderation.RemoveLock(uc, uc.Sender().ID, args[0])
	switch {
	case errors.Is(err, moderation.ErrInvalidHandle):
		return b.reply(uc, fmt.Sprintf(textLockInvalid, "removelock"))
	case err != nil:
		return err
	case !removed:
		return b.reply(uc, textLockMissing)
	}
	return b.reply(uc, fmt.Sprintf(textLockRemoved, models.NormalizeHandle(args[0])))
}

func (b *Bot) HandleStats(uc *UpdateContext) error {
	if !b.adminOnly(uc) {
		return nil
	}

	stats, err := b.Moderation.Stats(uc, uc.Sender().ID)
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}
	return b.reply(uc, fmt.Sprintf(textStats, stats.Users, stats.Blocked, stats.Locks))
}
