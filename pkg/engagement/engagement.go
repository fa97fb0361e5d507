// Package engagement nudges users who have gone quiet. A cron expression
// gates the sweep; each sweep finds inactive identities and queues a
// check-in message on whichever platform they are reachable on.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

type Scheduler struct {
	store         *store.Store
	relay         *relay.Relay
	cron          string
	inactiveHours int
	gron          *gronx.Gronx
}

func NewScheduler(st *store.Store, rl *relay.Relay, cron string, inactiveHours int) (*Scheduler, error) {
	g := gronx.New()
	if !g.IsValid(cron) {
		return nil, fmt.Errorf("invalid cron expression %q", cron)
	}
	return &Scheduler{
		store:         st,
		relay:         rl,
		cron:          cron,
		inactiveHours: inactiveHours,
		gron:          g,
	}, nil
}

// Run checks the cron gate once a minute and sweeps when it fires.
// Blocks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.C("engagement")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := s.gron.IsDue(s.cron, time.Now())
			if err != nil || !due {
				continue
			}
			if err := s.Sweep(); err != nil {
				log.Warnw("engagement sweep failed", "error", err)
			}
		}
	}
}

// Sweep queues one check-in per inactive identity. Unreachable users are
// skipped silently; they will be greeted whenever they link a device.
func (s *Scheduler) Sweep() error {
	users, err := s.store.InactiveSince(s.inactiveHours)
	if err != nil {
		return err
	}

	log := logger.C("engagement")
	for i := range users {
		u := &users[i]
		platform, address, err := relay.Resolve(u)
		if err != nil {
			continue
		}

		env := model.OutboundEnvelope{
			ID:       uuid.New().String(),
			Platform: platform,
			Address:  address,
			Text:     fmt.Sprintf("👋 Hey %s! Long time no see. I miss our chats! How have you been? 💭", u.Username),
		}
		if err := s.relay.Enqueue(env); err != nil {
			return err
		}
		// Reset the clock so one silence earns one nudge, not one per sweep.
		if err := s.store.TouchLastSeen(u.ID); err != nil {
			return err
		}
		log.Infow("queued check-in", "user", u.Username, "platform", string(platform))
	}

	return nil
}
