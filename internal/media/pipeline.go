package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

const (
	TextProcessing     = "⏳ Downloading, this may take a while..."
	TextFetchFailed    = "❌ Download failed: %s"
	TextDeliveryFailed = "❌ The file was downloaded but could not be sent. Please try again later."

	maxTitleLength = 200
)

type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Runner interface {
	Go(job string, fn func(ctx context.Context))
}

type Source string

const (
	SourceMessage  Source = "message"
	SourceDeepLink Source = "inline"
)

type Request struct {
	ChatID   int64
	UserID   int64
	FullName string
	Username string
	Link     string
	Source   Source
}

type Outcome struct {
	Platform Platform
	Title    string
	// Err is a *FetchError when acquisition failed, or a delivery error when
	// the requester could not be reached.
	Err error
}

type PipelineConfig struct {
	AdminID int64
	Timeout time.Duration
	Quality Quality
}

type Pipeline struct {
	fetcher Fetcher
	staging *Staging
	sender  Sender
	runner  Runner
	cfg     PipelineConfig
	log     *logrus.Entry
}

func NewPipeline(fetcher Fetcher, staging *Staging, sender Sender, runner Runner, cfg PipelineConfig) *Pipeline {
	if cfg.Quality == "" {
		cfg.Quality = QualityBest
	}
	return &Pipeline{
		fetcher: fetcher,
		staging: staging,
		sender:  sender,
		runner:  runner,
		cfg:     cfg,
		log:     logrus.WithField("component", "pipeline"),
	}
}

// Submit acknowledges the request right away and hands the slow part to the
// runner, so the calling handler returns immediately.
func (p *Pipeline) Submit(req Request) error {
	if _, err := p.sender.Send(telebot.ChatID(req.ChatID), TextProcessing); err != nil {
		return fmt.Errorf("sending acknowledgement: %w", err)
	}
	p.runner.Go(fmt.Sprintf("fetch:%d", req.UserID), func(ctx context.Context) {
		p.Handle(ctx, req)
	})
	return nil
}

func (p *Pipeline) Handle(ctx context.Context, req Request) Outcome {
	platform := Classify(req.Link)
	log := p.log.WithFields(logrus.Fields{
		"user_id":  req.UserID,
		"platform": platform.Label(),
		"source":   req.Source,
	})

	if fe := contextFailure(ctx.Err()); fe != nil {
		log.Warnf("dropping request: %v", fe)
		p.reply(log, req, fmt.Sprintf(TextFetchFailed, fe.Reason))
		return Outcome{Platform: platform, Err: fe}
	}

	slot, err := p.staging.Reserve()
	if err != nil {
		log.Errorf("reserving staging slot: %v", err)
		p.reply(log, req, fmt.Sprintf(TextFetchFailed, "internal error"))
		return Outcome{Platform: platform, Err: &FetchError{Reason: "internal error", Err: err}}
	}
	defer p.staging.Release(slot)
	log = log.WithField("slot", slot.Token)

	res, err := p.fetch(ctx, req.Link, slot)
	if err != nil {
		fe := AsFetchError(err, slot.Dir)
		log.Warnf("fetch failed: %v", fe)
		p.reply(log, req, fmt.Sprintf(TextFetchFailed, fe.Reason))
		return Outcome{Platform: platform, Err: fe}
	}
	title := truncate(res.Title, maxTitleLength)

	delivered, err := p.deliver(req.ChatID, res.Path, title)
	if err != nil {
		log.Errorf("delivering %s: %v", filepath.Base(res.Path), err)
		p.reply(log, req, TextDeliveryFailed)
		return Outcome{Platform: platform, Title: title, Err: fmt.Errorf("delivering to requester: %w", err)}
	}
	log.Infof("delivered %q", title)

	p.mirror(log, req, platform, res.Path, delivered)

	return Outcome{Platform: platform, Title: title}
}

func (p *Pipeline) fetch(ctx context.Context, link string, slot *Slot) (*FetchResult, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	res, err := p.fetcher.Fetch(ctx, FetchRequest{
		URL:     strings.TrimSpace(link),
		Quality: p.cfg.Quality,
		Dir:     slot.Dir,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Path == "" {
		return nil, &FetchError{Reason: "no file was produced"}
	}
	return res, nil
}

// deliver sends the file in the most fitting form, falling back to a plain
// document when Telegram rejects the photo or video upload.
func (p *Pipeline) deliver(chatID int64, path, title string) (*telebot.Message, error) {
	to := telebot.ChatID(chatID)

	kind := kindOf(path)
	msg, err := p.sender.Send(to, fromDisk(kind, path, title))
	if err == nil || kind == kindDocument {
		return msg, err
	}

	p.log.Debugf("sending %s as %s failed, retrying as document: %v", filepath.Base(path), kind, err)
	return p.sender.Send(to, fromDisk(kindDocument, path, title))
}

// mirror sends the audit copy to the admin. It is best-effort: failures are
// logged and dropped.
func (p *Pipeline) mirror(log *logrus.Entry, req Request, platform Platform, path string, delivered *telebot.Message) {
	if p.cfg.AdminID == 0 {
		return
	}

	caption := AuditCaption(req, platform)
	what := reuploadOf(delivered, caption)
	if what == nil {
		what = fromDisk(kindDocument, path, caption)
	}

	if _, err := p.sender.Send(telebot.ChatID(p.cfg.AdminID), what); err != nil {
		log.Warnf("mirroring to admin: %v", err)
	}
}

func (p *Pipeline) reply(log *logrus.Entry, req Request, text string) {
	if _, err := p.sender.Send(telebot.ChatID(req.ChatID), text); err != nil {
		log.Warnf("replying to requester: %v", err)
	}
}

func AuditCaption(req Request, platform Platform) string {
	username := "-"
	if req.Username != "" {
		username = "@" + req.Username
	}
	return fmt.Sprintf(
		"📥 Downloaded by:\nID: %d\nName: %s\nUsername: %s\nPlatform: %s\nSource: %s\nLink: %s",
		req.UserID,
		req.FullName,
		username,
		platform.Label(),
		req.Source,
		truncate(req.Link, 500),
	)
}

type fileKind string

const (
	kindVideo    fileKind = "video"
	kindPhoto    fileKind = "photo"
	kindDocument fileKind = "document"
)

func kindOf(path string) fileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".m4v", ".webm", ".mkv":
		return kindVideo
	case ".jpg", ".jpeg", ".png", ".webp":
		return kindPhoto
	default:
		return kindDocument
	}
}

func fromDisk(kind fileKind, path, caption string) telebot.Sendable {
	file := telebot.FromDisk(path)
	name := filepath.Base(path)
	switch kind {
	case kindVideo:
		return &telebot.Video{File: file, FileName: name, Caption: caption, Streaming: true}
	case kindPhoto:
		return &telebot.Photo{File: file, Caption: caption}
	default:
		return &telebot.Document{File: file, FileName: name, Caption: caption}
	}
}

// reuploadOf reuses the file id Telegram assigned to the requester's copy so
// the admin mirror does not upload the file a second time.
func reuploadOf(msg *telebot.Message, caption string) telebot.Sendable {
	switch {
	case msg == nil:
		return nil
	case msg.Video != nil && msg.Video.FileID != "":
		return &telebot.Video{File: telebot.File{FileID: msg.Video.FileID}, Caption: caption}
	case msg.Photo != nil && msg.Photo.FileID != "":
		return &telebot.Photo{File: telebot.File{FileID: msg.Photo.FileID}, Caption: caption}
	case msg.Document != nil && msg.Document.FileID != "":
		return &telebot.Document{File: telebot.File{FileID: msg.Document.FileID}, Caption: caption}
	default:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// IsFetchError reports whether an outcome failed during acquisition rather
// than delivery.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
