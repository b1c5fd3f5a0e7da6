package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/gate"
	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictBlocked
	VerdictJoinRequired
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictBlocked:
		return "blocked"
	case VerdictJoinRequired:
		return "join_required"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

type Admission struct {
	Verdict Verdict
	// Locks is set for VerdictJoinRequired.
	Locks []models.ChannelLock
}

type UserRegistry interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	GetOrCreateUser(ctx context.Context, telegramID int64, fullName, username string) (*models.User, bool, error)
}

type MembershipGate interface {
	Check(ctx context.Context, userID int64) gate.Decision
}

// Guard runs the checks every user interaction goes through: blocked users
// are refused first, then the membership gate, then first-contact
// registration.
type Guard struct {
	users   UserRegistry
	gate    MembershipGate
	sender  Sender
	adminID int64
	log     *logrus.Entry
}

func NewGuard(users UserRegistry, gate MembershipGate, sender Sender, adminID int64) *Guard {
	return &Guard{
		users:   users,
		gate:    gate,
		sender:  sender,
		adminID: adminID,
		log:     logrus.WithField("component", "guard"),
	}
}

func (g *Guard) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	user, err := g.users.GetUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("getting user %d: %w", userID, err)
	default:
		return user.Blocked, nil
	}
}

func (g *Guard) Admit(ctx context.Context, sender *telebot.User) (Admission, error) {
	blocked, err := g.IsBlocked(ctx, sender.ID)
	if err != nil {
		return Admission{}, err
	}
	if blocked {
		return Admission{Verdict: VerdictBlocked}, nil
	}

	decision := g.gate.Check(ctx, sender.ID)
	if !decision.Satisfied {
		return Admission{Verdict: VerdictJoinRequired, Locks: decision.Locks}, nil
	}

	user, created, err := g.users.GetOrCreateUser(ctx, sender.ID, FullName(sender), sender.Username)
	if err != nil {
		return Admission{}, fmt.Errorf("registering user %d: %w", sender.ID, err)
	}
	if created {
		g.log.Infof("registered new user %v", user)
		g.announce(sender)
	}

	return Admission{Verdict: VerdictAllowed}, nil
}

func (g *Guard) announce(u *telebot.User) {
	if g.adminID == 0 {
		return
	}
	text := fmt.Sprintf(textNewUser, u.ID, FullName(u), Handle(u))
	if _, err := g.sender.Send(telebot.ChatID(g.adminID), text); err != nil {
		g.log.Warnf("announcing new user %d: %v", u.ID, err)
	}
}
