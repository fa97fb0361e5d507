// Package relay resolves logical recipients to concrete platform
// addresses and hands deliveries to per-platform queues. Delivery is
// at-most-once: enqueue and the sender's confirmation are not atomic with
// the actual send.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

var (
	ErrBlocked    = errors.New("recipient has blocked the sender")
	ErrNotFriends = errors.New("recipient is not a friend")
)

// UnreachableError reports that no linked address could be found, naming
// the last platform tried.
type UnreachableError struct {
	Platform model.Platform
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("no linked address, last tried %s", e.Platform)
}

type Relay struct {
	store  *store.Store
	queues map[model.Platform]*Queue
}

func New(st *store.Store) *Relay {
	return &Relay{
		store: st,
		queues: map[model.Platform]*Queue{
			model.PlatformWhatsApp: NewQueue(),
			model.PlatformTelegram: NewQueue(),
		},
	}
}

// Queue returns the delivery queue for a platform.
func (r *Relay) Queue(p model.Platform) *Queue {
	return r.queues[p]
}

// Enqueue routes an envelope onto its platform's queue.
func (r *Relay) Enqueue(env model.OutboundEnvelope) error {
	q, ok := r.queues[env.Platform]
	if !ok {
		return fmt.Errorf("unknown platform %q", env.Platform)
	}
	return q.Enqueue(env)
}

func (r *Relay) Close() {
	for _, q := range r.queues {
		q.Close()
	}
}

// Resolve picks the best reachable platform and address for an identity:
// the preferred platform's linked address when present, otherwise the
// alternate platform's. An UnreachableError names the last platform tried.
func Resolve(target *model.Identity) (model.Platform, string, error) {
	preferred := model.PlatformWhatsApp
	if target.PreferredPlatform.Valid && model.Platform(target.PreferredPlatform.String).Valid() {
		preferred = model.Platform(target.PreferredPlatform.String)
	}

	if addr, ok := target.AddressFor(preferred); ok {
		return preferred, addr, nil
	}
	fallback := preferred.Other()
	if addr, ok := target.AddressFor(fallback); ok {
		return fallback, addr, nil
	}
	return "", "", &UnreachableError{Platform: fallback}
}

// SendPrivate delivers content from one identity to a named user. The
// outcome is exactly one of: not-found, blocked, not-friends, unreachable,
// or an enqueued envelope plus a confirmation naming the recipient. The
// block check runs before the friendship check.
func (r *Relay) SendPrivate(ctx context.Context, fromID int64, toUsername, content string) (string, error) {
	target, err := r.store.GetByUsername(toUsername)
	if err != nil {
		return "", err
	}

	blocked, err := r.store.IsBlocked(target.ID, fromID)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", ErrBlocked
	}

	friends, err := r.store.AreFriends(fromID, target.ID)
	if err != nil {
		return "", err
	}
	if !friends {
		return "", ErrNotFriends
	}

	platform, address, err := Resolve(target)
	if err != nil {
		return "", err
	}

	sender, err := r.store.GetByID(fromID)
	if err != nil {
		return "", err
	}

	env := model.OutboundEnvelope{
		ID:       uuid.New().String(),
		Platform: platform,
		Address:  address,
		Text:     fmt.Sprintf("💬 Message from %s:\n%s", sender.Username, content),
	}
	if err := r.Enqueue(env); err != nil {
		return "", err
	}

	if err := r.store.LogPrivateMessage(fromID, target.ID, content); err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Message sent to %s via %s.", target.Username, platform), nil
}
