package relay

import (
	"context"
	"time"

	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
)

// Deliverer performs the actual platform send for one envelope.
type Deliverer interface {
	Deliver(ctx context.Context, env model.OutboundEnvelope) error
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// RunWorker is the single consumer loop for one platform's queue. An
// attachment send that fails is retried once as text only; after that the
// envelope is logged and dropped (at-most-once delivery). Consecutive
// failures back off so a broken transport does not spin.
func (r *Relay) RunWorker(ctx context.Context, platform model.Platform, d Deliverer) {
	log := logger.C("relay").With("platform", string(platform))
	q := r.Queue(platform)
	backoff := initialBackoff

	for {
		env, ok := q.Dequeue(ctx)
		if !ok {
			log.Infow("delivery worker stopped")
			return
		}

		err := d.Deliver(ctx, env)
		if err != nil && env.AttachmentPath != "" {
			textOnly := env
			textOnly.AttachmentPath = ""
			err = d.Deliver(ctx, textOnly)
		}

		if err != nil {
			log.Warnw("delivery failed, dropping envelope",
				"envelope_id", env.ID, "address", env.Address, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
	}
}
