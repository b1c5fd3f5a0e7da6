package broadcast

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

const pageSize = 500

type Recipients interface {
	ListActiveUsers(ctx context.Context, afterID int64, limit int) ([]models.User, error)
}

// Copier is the part of telebot.API used to replay a message.
type Copier interface {
	Copy(to telebot.Recipient, msg telebot.Editable, opts ...interface{}) (*telebot.Message, error)
}

type Report struct {
	Total     int
	Delivered int
	Failed    int
}

func (r Report) String() string {
	return fmt.Sprintf("delivered %d of %d, failed %d", r.Delivered, r.Total, r.Failed)
}

type Broadcaster struct {
	users   Recipients
	copier  Copier
	limiter *rate.Limiter
	log     *logrus.Entry
}

// New creates a broadcaster sending at most perSecond copies per second.
func New(users Recipients, copier Copier, perSecond float64) *Broadcaster {
	return &Broadcaster{
		users:   users,
		copier:  copier,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     logrus.WithField("component", "broadcast"),
	}
}

// Run copies source to every non-blocked user. A failed copy is counted and
// skipped; it never stops the batch. The returned error is set only when the
// recipient list could not be read or ctx ended, together with the partial
// report.
func (b *Broadcaster) Run(ctx context.Context, source models.MessageRef) (Report, error) {
	var (
		report Report
		after  int64
	)
	log := b.log.WithField("source", source.String())
	log.Infof("broadcast started")

	for {
		users, err := b.users.ListActiveUsers(ctx, after, pageSize)
		if err != nil {
			return report, fmt.Errorf("listing recipients: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for i := range users {
			if err := b.limiter.Wait(ctx); err != nil {
				return report, fmt.Errorf("broadcast interrupted: %w", err)
			}

			report.Total++
			if _, err := b.copier.Copy(&telebot.User{ID: users[i].TelegramID}, source); err != nil {
				report.Failed++
				log.Debugf("skipping %d: %v", users[i].TelegramID, err)
				continue
			}
			report.Delivered++
		}
		after = users[len(users)-1].TelegramID
	}

	log.Infof("broadcast finished: %v", report)
	return report, nil
}
