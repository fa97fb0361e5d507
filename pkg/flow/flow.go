// Package flow drives the multi-turn registration dialog. The store is
// its only memory: every step reads the accumulated fields, validates one
// input, and writes the next state back, so a worker restart mid-flow
// loses nothing.
package flow

import (
	"fmt"
	"strings"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/persona"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

// Avatars is the fixed selection catalog offered during onboarding. Any
// input not matching an index is accepted as a raw avatar value.
var Avatars = map[string]string{
	"1": "https://api.dicebear.com/7.x/adventurer/png?seed=Felix",
	"2": "https://api.dicebear.com/7.x/adventurer/png?seed=Aneka",
	"3": "https://api.dicebear.com/7.x/adventurer/png?seed=Midnight",
	"4": "https://api.dicebear.com/7.x/bottts/png?seed=123",
}

// Personas maps catalog indexes to the agent mood they configure.
var Personas = map[string]model.Mood{
	"1": model.MoodSupportive,
	"2": model.MoodSarcastic,
	"3": model.MoodFormal,
	"4": model.MoodMystical,
}

const (
	promptUsername = "👋 Welcome! Let's get you set up.\n\n[Step 1/6] First, choose a unique username:"
	promptEmail    = "📧 Great! [Step 2/6] Now, what is your email address?"
	promptPassword = "🔐 [Step 3/6] Secure your account. Create a password (at least 6 characters):"
	promptGender   = "🙋 [Step 4/6] How do you identify? (male/female)"
	promptAvatar   = "🎨 [Step 5/6] Choose your avatar:\n\n" +
		"1. Adventurer Felix\n2. Adventurer Aneka\n3. Midnight Warrior\n4. Retro Bot\n\n" +
		"Reply with the number (1-4) or paste a custom image URL."
	promptPersona = "🧠 [Step 6/6] Final step! Choose my personality:\n\n" +
		"1. 🤗 Best Friend (supportive)\n2. 🔥 Roast Master (sarcastic)\n3. 👔 Professional (formal)\n4. 🧙 Wizard (mystical)\n\n" +
		"Reply with the number (1-4)."
)

type Flow struct {
	store *store.Store
}

func New(st *store.Store) *Flow {
	return &Flow{store: st}
}

// StartRegistration seeds the flow at the username step. Restarting
// overwrites any stale partial state for the sender; there is no
// resume-by-merge.
func (f *Flow) StartRegistration(senderKey string, platform model.Platform) (string, error) {
	if err := f.store.SetState(senderKey, platform, model.StateRegUsername, nil); err != nil {
		return "", err
	}
	return promptUsername, nil
}

// HandleInput advances the active flow for a sender by one step. It
// returns handled=false when no flow is active, letting the router take
// over command dispatch.
func (f *Flow) HandleInput(senderKey string, platform model.Platform, text string) (string, bool, error) {
	tag, fields, err := f.store.GetState(senderKey)
	if err != nil {
		return "", false, err
	}
	if tag == model.StateNone || tag == model.StateOTPWait {
		// OTP state is owned by the router's verify handler.
		return "", false, nil
	}

	text = strings.TrimSpace(text)

	switch tag {
	case model.StateRegUsername:
		if len(text) < 3 {
			return "❌ Username must be at least 3 characters. Try again:", true, nil
		}
		fields["username"] = text
		if err := f.store.SetState(senderKey, platform, model.StateRegEmail, fields); err != nil {
			return "", false, err
		}
		return promptEmail, true, nil

	case model.StateRegEmail:
		if !strings.Contains(text, "@") || !strings.Contains(text, ".") {
			return "❌ That doesn't look like a valid email. Please try again:", true, nil
		}
		fields["email"] = text
		if err := f.store.SetState(senderKey, platform, model.StateRegPassword, fields); err != nil {
			return "", false, err
		}
		return promptPassword, true, nil

	case model.StateRegPassword:
		if len(text) < 6 {
			return "❌ Password must be at least 6 characters. Try again:", true, nil
		}
		fields["password"] = text
		if err := f.store.SetState(senderKey, platform, model.StateRegGender, fields); err != nil {
			return "", false, err
		}
		return promptGender, true, nil

	case model.StateRegGender:
		fields["self_gender"] = string(persona.ParseGender(text))
		if err := f.store.SetState(senderKey, platform, model.StateRegAvatar, fields); err != nil {
			return "", false, err
		}
		return promptAvatar, true, nil

	case model.StateRegAvatar:
		avatar := text
		if url, ok := Avatars[text]; ok {
			avatar = url
		}
		fields["avatar_url"] = avatar
		if err := f.store.SetState(senderKey, platform, model.StateRegPersona, fields); err != nil {
			return "", false, err
		}
		return promptPersona, true, nil

	case model.StateRegPersona:
		reply, err := f.commit(senderKey, platform, fields, text)
		if err != nil {
			return "", false, err
		}
		return reply, true, nil
	}

	return "", false, nil
}

// commit finalizes registration in one store transaction: the identity,
// its platform binding, the persona instruction, and the state cleanup
// land together, so a failure leaves no half-registered user behind.
// On creation failure the collected data is not retried; state is cleared
// and the failure surfaced so the user can restart.
func (f *Flow) commit(senderKey string, platform model.Platform, fields map[string]string, personaChoice string) (string, error) {
	mood, ok := Personas[strings.TrimSpace(personaChoice)]
	if !ok {
		mood = Personas["1"]
	}

	selfGender := model.Gender(fields["self_gender"])
	agentGender := model.GenderFemale
	if selfGender == model.GenderFemale {
		agentGender = model.GenderMale
	}

	instruction := persona.Build(fields["username"], mood, selfGender, agentGender)

	_, recoveryKey, err := f.store.CompleteRegistration(store.NewIdentity{
		Username:    fields["username"],
		Email:       fields["email"],
		Password:    fields["password"],
		Platform:    platform,
		SenderKey:   senderKey,
		SelfGender:  selfGender,
		AgentGender: agentGender,
		AvatarURL:   fields["avatar_url"],
		Bio:         "New User",
	}, mood, instruction)
	if err != nil {
		// Force a restart rather than resume partial data.
		_ = f.store.ClearState(senderKey)
		switch err {
		case store.ErrUsernameTaken:
			return "❌ Username already exists. Send /register to start over.", nil
		case store.ErrEmailTaken:
			return "❌ Email already registered. Send /register to start over.", nil
		default:
			return "", err
		}
	}

	return fmt.Sprintf(
		"✅ Registration successful, %s!\n🔑 Backup key: `%s`\n(Save this! Use /recover <key> <new_pass> if you forget your password.)\n\n🎉 Setup complete — just start chatting!",
		fields["username"], recoveryKey), nil
}
