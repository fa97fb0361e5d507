// Package router interprets every inbound message: it resolves the
// sender's identity, drives active conversation flows, dispatches
// commands, and falls back to the completion service for plain chat.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/tinyland-inc/truefriend/pkg/flow"
	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/persona"
	"github.com/tinyland-inc/truefriend/pkg/providers"
	"github.com/tinyland-inc/truefriend/pkg/qr"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

const authRequiredMsg = "🔒 Authentication required.\n\nPlease log in or register to chat:\n\n🆕 /register (interactive setup)\n🔑 /login <username> <password>"

const historyWindow = 10

// Router is a pure dispatcher: all state lives in the store, all side
// effects go through the injected collaborators.
type Router struct {
	store     *store.Store
	flow      *flow.Flow
	relay     *relay.Relay
	completer providers.Completer
	qr        *qr.Generator

	commands map[string]command
}

// New wires a router. The QR generator may be nil when pairing codes are
// disabled.
func New(st *store.Store, fl *flow.Flow, rl *relay.Relay, completer providers.Completer, qrg *qr.Generator) *Router {
	r := &Router{
		store:     st,
		flow:      fl,
		relay:     rl,
		completer: completer,
		qr:        qrg,
	}
	r.commands = r.commandTable()
	return r
}

// Handle processes one inbound message and returns the direct reply, or
// an empty string when the message was dispatched silently.
func (r *Router) Handle(ctx context.Context, text string, platform model.Platform, senderKey string) (string, error) {
	// Active flow first: mid-registration input never reaches dispatch.
	tag, _, err := r.store.GetState(senderKey)
	if err != nil {
		return "", err
	}
	if tag == model.StateOTPWait {
		return r.verifyOTP(senderKey, platform, text)
	}
	if tag != model.StateNone {
		reply, handled, err := r.flow.HandleInput(senderKey, platform, text)
		if err != nil {
			return "", err
		}
		if handled && reply != "" {
			return reply, nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}

	identity, err := r.store.GetByPlatform(platform, senderKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	parts := strings.Fields(trimmed)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	// Pre-authentication commands run regardless of identity resolution.
	if reply, handled, err := r.handlePreAuth(cmd, args, platform, senderKey, identity); handled {
		return reply, err
	}

	if identity == nil {
		return authRequiredMsg, nil
	}

	sess := &session{
		identity:  identity,
		platform:  platform,
		senderKey: senderKey,
		raw:       trimmed,
	}

	// Active chat tunnel: everything except /exit is forwarded.
	if identity.ChatTarget.Valid && cmd != "/exit" {
		return r.forwardTunnel(ctx, sess)
	}

	if c, ok := r.commands[cmd]; ok {
		if len(args) < c.minArgs {
			return c.usage, nil
		}
		return c.run(ctx, sess, args)
	}

	// Unknown command tokens fall through to chat so a command-like
	// sentence still gets a conversational reply.
	return r.chat(ctx, sess)
}

// forwardTunnel routes the whole message to the tunnel target. Success is
// silent; failures surface because nothing was dispatched.
func (r *Router) forwardTunnel(ctx context.Context, sess *session) (string, error) {
	target, err := r.store.GetByID(sess.identity.ChatTarget.Int64)
	if errors.Is(err, store.ErrNotFound) {
		_ = r.store.SetChatTarget(sess.identity.ID, nil)
		return "❌ Your chat partner no longer exists. Tunnel closed.", nil
	}
	if err != nil {
		return "", err
	}

	_, err = r.relay.SendPrivate(ctx, sess.identity.ID, target.Username, sess.raw)
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, relay.ErrBlocked):
		return "🚫 " + target.Username + " has blocked you. Send /exit to leave the chat.", nil
	case errors.Is(err, relay.ErrNotFriends):
		return "❌ You are no longer friends with " + target.Username + ". Send /exit to leave the chat.", nil
	default:
		var unreachable *relay.UnreachableError
		if errors.As(err, &unreachable) {
			return "❌ " + target.Username + " has no reachable device right now.", nil
		}
		return "", err
	}
}

// chat is the default path: safety filter, persona instruction, recent
// history, completion call, logged exchange.
func (r *Router) chat(ctx context.Context, sess *session) (string, error) {
	if matched, deflection := FilterInput(sess.raw); matched {
		return deflection, nil
	}

	if err := r.store.TouchLastSeen(sess.identity.ID); err != nil {
		return "", err
	}

	instruction := sess.identity.SystemPrompt.String
	if instruction == "" {
		instruction = persona.Build(
			sess.identity.Username,
			sess.identity.MoodTag(),
			model.Gender(sess.identity.SelfGender.String),
			model.Gender(sess.identity.AgentGender.String),
		)
	}

	rows, err := r.store.RecentHistory(sess.identity.ID, historyWindow)
	if err != nil {
		return "", err
	}
	history := make([]providers.Turn, 0, len(rows))
	for _, row := range rows {
		history = append(history, providers.Turn{User: row[0], Assistant: row[1]})
	}

	reply, err := r.completer.Complete(ctx, instruction, history, sess.raw)
	if err != nil {
		// Resource-unavailable: specific message, real cause logged.
		logger.C("router").Warnw("completion service unavailable",
			"platform", string(sess.platform), "user_id", sess.identity.ID, "error", err)
		return "☁️ My connection to the cloud is a bit shaky right now. Give me a moment to catch my breath!", nil
	}

	if err := r.store.LogConversation(sess.identity.ID, sess.raw, reply); err != nil {
		return "", err
	}

	return reply, nil
}

// session carries the resolved per-message context through the handlers.
type session struct {
	identity  *model.Identity
	platform  model.Platform
	senderKey string
	raw       string
}
