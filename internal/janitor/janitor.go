// Package janitor periodically drops state that outlives its usefulness:
// staging slots abandoned by killed fetches, idle menu sessions and expired
// deep link tokens.
package janitor

import (
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/grabber/internal/deeplink"
	"github.com/C4T-BuT-S4D/grabber/internal/media"
	"github.com/C4T-BuT-S4D/grabber/internal/session"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Janitor struct {
	staging    *media.Staging
	sessions   *session.Store
	links      *deeplink.Links
	stagingTTL time.Duration
	sessionTTL time.Duration

	cron *cron.Cron
	log  *logrus.Entry
}

func New(staging *media.Staging, sessions *session.Store, links *deeplink.Links, stagingTTL, sessionTTL time.Duration) *Janitor {
	log := logrus.WithField("component", "janitor")
	return &Janitor{
		staging:    staging,
		sessions:   sessions,
		links:      links,
		stagingTTL: stagingTTL,
		sessionTTL: sessionTTL,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.PrintfLogger(log)),
		)),
		log: log,
	}
}

func (j *Janitor) RunOnce() {
	slots, err := j.staging.Sweep(j.stagingTTL)
	if err != nil {
		j.log.Errorf("sweeping staging: %v", err)
	}
	sessions := j.sessions.Prune(j.sessionTTL)
	links := j.links.Prune()

	if slots+sessions+links == 0 {
		j.log.Debug("nothing to clean")
		return
	}
	j.log.Infof("cleaned %d staging slots, %d sessions, %d deep links", slots, sessions, links)
}

// Start schedules RunOnce with a cron spec such as "@every 10m".
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return fmt.Errorf("scheduling cleanup %q: %w", schedule, err)
	}
	j.cron.Start()
	return nil
}

// Stop waits for a running cleanup to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
