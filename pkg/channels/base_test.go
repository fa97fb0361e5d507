package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

func TestBaseChannelHandleMessage(t *testing.T) {
	var gotText, gotSender string
	var gotPlatform model.Platform

	handler := func(_ context.Context, text string, platform model.Platform, senderKey string) string {
		gotText, gotPlatform, gotSender = text, platform, senderKey
		return "reply: " + text
	}

	c := NewBaseChannel("telegram", model.PlatformTelegram, handler, nil)

	reply := c.HandleMessage(context.Background(), "hello", "tg:42")
	assert.Equal(t, "reply: hello", reply)
	assert.Equal(t, "hello", gotText)
	assert.Equal(t, model.PlatformTelegram, gotPlatform)
	assert.Equal(t, "tg:42", gotSender)
}

func TestBaseChannelAllowList(t *testing.T) {
	calls := 0
	handler := func(context.Context, string, model.Platform, string) string {
		calls++
		return "ok"
	}
	c := NewBaseChannel("telegram", model.PlatformTelegram, handler, []string{"tg:42"})

	assert.True(t, c.IsAllowed("tg:42"))
	assert.False(t, c.IsAllowed("tg:99"))

	assert.Equal(t, "ok", c.HandleMessage(context.Background(), "hi", "tg:42"))
	// Disallowed senders are dropped before the handler runs.
	assert.Empty(t, c.HandleMessage(context.Background(), "hi", "tg:99"))
	assert.Equal(t, 1, calls)

	open := NewBaseChannel("telegram", model.PlatformTelegram, handler, nil)
	assert.True(t, open.IsAllowed("anyone"))
}

func TestBaseChannelRunningFlag(t *testing.T) {
	c := NewBaseChannel("whatsapp", model.PlatformWhatsApp, nil, nil)

	assert.Equal(t, "whatsapp", c.Name())
	assert.Equal(t, model.PlatformWhatsApp, c.Platform())
	assert.False(t, c.IsRunning())

	c.SetRunning(true)
	assert.True(t, c.IsRunning())
	c.SetRunning(false)
	assert.False(t, c.IsRunning())
}
