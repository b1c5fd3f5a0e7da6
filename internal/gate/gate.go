// Package gate decides whether a user has joined every required channel.
//
// The check is deliberately fail-closed: a membership query that errors out
// for any reason counts as "not joined". Nothing is cached, so every call
// hits the platform again and a repeated call is the "recheck" action.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

var ErrNotMember = errors.New("user is not a member")

type LockLister interface {
	ListChannelLocks(ctx context.Context) ([]models.ChannelLock, error)
}

// MembershipChecker is the part of telebot.API the gate needs.
type MembershipChecker interface {
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
}

type Decision struct {
	Satisfied bool
	// Locks is the full configured list in check order, used to render the
	// join prompt regardless of which lock failed.
	Locks []models.ChannelLock
}

type Gate struct {
	locks   LockLister
	checker MembershipChecker
	log     *logrus.Entry
}

func New(locks LockLister, checker MembershipChecker) *Gate {
	return &Gate{
		locks:   locks,
		checker: checker,
		log:     logrus.WithField("component", "gate"),
	}
}

func (g *Gate) IsSatisfied(ctx context.Context, userID int64) bool {
	return g.Check(ctx, userID).Satisfied
}

func (g *Gate) Check(ctx context.Context, userID int64) Decision {
	locks, err := g.locks.ListChannelLocks(ctx)
	if err != nil {
		g.log.Errorf("listing channel locks for user %d: %v", userID, err)
		return Decision{}
	}

	for i := range locks {
		if err := ctx.Err(); err != nil {
			g.log.Warnf("membership check for user %d interrupted: %v", userID, err)
			return Decision{Locks: locks}
		}

		if err := g.checkLock(&locks[i], userID); err != nil {
			if errors.Is(err, ErrNotMember) {
				g.log.Debugf("user %d has not joined %s", userID, locks[i].Handle)
			} else {
				g.log.Warnf("membership query for user %d failed, denying: %v", userID, err)
			}
			return Decision{Locks: locks}
		}
	}

	return Decision{Satisfied: true, Locks: locks}
}

func (g *Gate) checkLock(lock *models.ChannelLock, userID int64) error {
	member, err := g.checker.ChatMemberOf(lock, &telebot.User{ID: userID})
	if err != nil {
		return fmt.Errorf("querying %s: %w", lock.Handle, err)
	}
	if member == nil || !IsMemberRole(member.Role) {
		return fmt.Errorf("%s: %w", lock.Handle, ErrNotMember)
	}
	return nil
}

func IsMemberRole(role telebot.MemberStatus) bool {
	switch role {
	case telebot.Member, telebot.Administrator, telebot.Creator:
		return true
	default:
		return false
	}
}
