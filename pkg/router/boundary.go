package router

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
)

// apologies are the only strings the boundary ever shows a user. They
// carry no technical detail; the real cause goes to the log.
var apologies = []string{
	"Oops, I got a bit tangled up in my own thoughts there! 😅 What were we saying?",
	"I seem to have hit a small bump in the road. 🚧 Could you try saying that again?",
	"My apologies! I missed that. 🤖 Something went slightly wrong on my end, but I'm back now!",
	"Whoops! I got a bit lost. 🧭 Let's try that again?",
}

// Boundary wraps the router so that no internal failure, whether error
// or panic, ever leaks past it. It is the single place allowed to
// produce the in-character fallback reply.
type Boundary struct {
	router *Router
}

func NewBoundary(r *Router) *Boundary {
	return &Boundary{router: r}
}

// Handle never returns an error: anything the router could not recover
// locally becomes a logged incident plus an apology string.
func (b *Boundary) Handle(ctx context.Context, text string, platform model.Platform, senderKey string) (reply string) {
	log := logger.C("boundary")

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("panic in message handling",
				"platform", string(platform), "sender", senderKey, "panic", fmt.Sprint(rec))
			reply = apologies[rand.Intn(len(apologies))]
		}
	}()

	reply, err := b.router.Handle(ctx, text, platform, senderKey)
	if err != nil {
		log.Errorw("message handling failed",
			"platform", string(platform), "sender", senderKey, "error", err)
		return apologies[rand.Intn(len(apologies))]
	}
	return reply
}
