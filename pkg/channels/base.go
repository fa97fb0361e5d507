// Package channels contains the platform transport adapters. Each
// channel runs as an isolated worker: it receives raw platform messages,
// hands them to the inbound handler synchronously, and sends the reply
// (if any) back on the same conversation. Outbound relay deliveries
// arrive independently through Deliver.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

// Handler processes one inbound message and returns the direct reply, or
// an empty string for silent dispatch. It must never panic or fail; the
// router's error boundary guarantees that.
type Handler func(ctx context.Context, text string, platform model.Platform, senderKey string) string

// Channel is one platform transport. Deliver makes every channel usable
// as a relay delivery worker target.
type Channel interface {
	Name() string
	Platform() model.Platform
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Deliver(ctx context.Context, env model.OutboundEnvelope) error
	IsRunning() bool
	IsAllowed(senderKey string) bool
}

// BaseChannel carries the pieces every transport shares.
type BaseChannel struct {
	name      string
	platform  model.Platform
	handler   Handler
	allowList []string
	running   atomic.Bool
}

func NewBaseChannel(name string, platform model.Platform, handler Handler, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		platform:  platform,
		handler:   handler,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) Platform() model.Platform {
	return c.platform
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed reports whether the sender may use this channel. An empty
// allow-list admits everyone.
func (c *BaseChannel) IsAllowed(senderKey string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		if senderKey == allowed {
			return true
		}
	}
	return false
}

// HandleMessage runs the inbound handler for one raw platform message.
// Disallowed senders are dropped silently.
func (c *BaseChannel) HandleMessage(ctx context.Context, text, senderKey string) string {
	if !c.IsAllowed(senderKey) {
		return ""
	}
	return c.handler(ctx, text, c.platform, senderKey)
}
