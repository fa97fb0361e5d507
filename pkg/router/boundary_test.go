package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyland-inc/truefriend/pkg/flow"
	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/providers"
)

type panickingCompleter struct{}

func (panickingCompleter) Complete(context.Context, string, []providers.Turn, string) (string, error) {
	panic("completer wiring broke")
}

func (panickingCompleter) Model() string { return "panic-model" }

func TestBoundaryPassesThroughNormalReplies(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", model.PlatformWhatsApp, "wa:111")
	b := NewBoundary(h.router)

	reply := b.Handle(context.Background(), "hello", model.PlatformWhatsApp, "wa:111")
	assert.Equal(t, "sure thing!", reply)
}

func TestBoundaryTurnsErrorsIntoApologies(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", model.PlatformWhatsApp, "wa:111")
	b := NewBoundary(h.router)

	// Closing the store underneath the router makes Handle error out.
	h.store.Close()

	reply := b.Handle(context.Background(), "hello", model.PlatformWhatsApp, "wa:111")
	assert.Contains(t, apologies, reply)
	assert.NotContains(t, reply, "sql")
	assert.NotContains(t, reply, "error")
}

func TestBoundaryTurnsPanicsIntoApologies(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", model.PlatformWhatsApp, "wa:111")
	b := NewBoundary(New(h.store, flow.New(h.store), h.relay, panickingCompleter{}, nil))

	reply := b.Handle(context.Background(), "hello", model.PlatformWhatsApp, "wa:111")
	assert.Contains(t, apologies, reply)
	assert.NotContains(t, reply, "wiring")
}
