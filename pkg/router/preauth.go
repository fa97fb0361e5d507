package router

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

// handlePreAuth evaluates the commands that must work before an identity
// is resolved: they either create an identity, bind one, or are
// meaningless once authenticated differently.
func (r *Router) handlePreAuth(cmd string, args []string, platform model.Platform, senderKey string, identity *model.Identity) (string, bool, error) {
	switch cmd {
	case "/register", "/start":
		if identity != nil {
			return "✅ You are already registered! Just start chatting.", true, nil
		}
		reply, err := r.flow.StartRegistration(senderKey, platform)
		return reply, true, err

	case "/login":
		if len(args) < 2 {
			return "❌ Usage: /login <username> <password>", true, nil
		}
		id, err := r.store.VerifyLogin(args[0], args[1])
		if errors.Is(err, store.ErrNotFound) {
			return "❌ Invalid username or password.", true, nil
		}
		if err != nil {
			return "", true, err
		}
		if err := r.store.BindPlatform(id, platform, senderKey); err != nil {
			return "", true, err
		}
		if err := r.store.TouchLastSeen(id); err != nil {
			return "", true, err
		}
		return fmt.Sprintf("✅ Login successful! Welcome back, %s. 👋", args[0]), true, nil

	case "/otp_login":
		if len(args) < 1 {
			return "❌ Usage: /otp_login <username>", true, nil
		}
		reply, err := r.startOTP(args[0], platform, senderKey)
		return reply, true, err

	case "/otp_verify":
		// Reaching here means no OTP is pending; the OTP_WAIT state is
		// consumed before dispatch.
		return "❌ No pending verification. Start with /otp_login <username>.", true, nil

	case "/recover":
		if len(args) < 2 {
			return "❌ Usage: /recover <key> <new_password>", true, nil
		}
		username, err := r.store.RecoverAccount(args[0], args[1])
		if errors.Is(err, store.ErrBadRecovery) {
			return "❌ Invalid recovery key.", true, nil
		}
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("✅ Password reset for %s. Log in with /login %s <new_password>. A new backup key was issued; check /settings after login.", username, username), true, nil

	case "/qr":
		reply, err := r.generatePairingQR(platform, senderKey)
		return reply, true, err
	}

	return "", false, nil
}

// startOTP generates a fixed-width numeric code, parks it in the sender's
// conversation state, and delivers it through the target account's
// alternate platform. The requester never sees the code directly.
func (r *Router) startOTP(username string, platform model.Platform, senderKey string) (string, error) {
	target, err := r.store.GetByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return "❌ User not found.", nil
	}
	if err != nil {
		return "", err
	}

	other := platform.Other()
	address, ok := target.AddressFor(other)
	if !ok {
		return fmt.Sprintf("❌ %s has no linked %s account to receive a code. Use /login instead.", username, other), nil
	}

	code, err := generateOTP()
	if err != nil {
		return "", err
	}

	if err := r.store.SetState(senderKey, platform, model.StateOTPWait, map[string]string{
		"username": username,
		"otp":      code,
	}); err != nil {
		return "", err
	}

	if err := r.relay.Enqueue(model.OutboundEnvelope{
		ID:       uuid.New().String(),
		Platform: other,
		Address:  address,
		Text:     fmt.Sprintf("🔐 Your TrueFriend verification code is %s. If you didn't request this, ignore it.", code),
	}); err != nil {
		return "", err
	}

	return fmt.Sprintf("📲 A verification code was sent to your %s account. Reply with the 6-digit code (or /otp_verify <code>).", other), nil
}

// verifyOTP consumes the OTP_WAIT state. State is cleared on success and
// on mismatch alike; a failed attempt requires a fresh /otp_login.
func (r *Router) verifyOTP(senderKey string, platform model.Platform, text string) (string, error) {
	_, fields, err := r.store.GetState(senderKey)
	if err != nil {
		return "", err
	}
	if err := r.store.ClearState(senderKey); err != nil {
		return "", err
	}

	parts := strings.Fields(strings.TrimSpace(text))
	submitted := ""
	if len(parts) > 0 {
		submitted = parts[len(parts)-1]
	}

	expected := fields["otp"]
	if expected == "" ||
		subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1 {
		return "❌ Wrong code. Start over with /otp_login <username>.", nil
	}

	target, err := r.store.GetByUsername(fields["username"])
	if errors.Is(err, store.ErrNotFound) {
		return "❌ That account no longer exists.", nil
	}
	if err != nil {
		return "", err
	}

	if err := r.store.BindPlatform(target.ID, platform, senderKey); err != nil {
		return "", err
	}
	if err := r.store.TouchLastSeen(target.ID); err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Verified! Welcome back, %s. 👋", target.Username), nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generatePairingQR renders the sender's platform address as a QR code
// and queues it back to the requester as an attachment.
func (r *Router) generatePairingQR(platform model.Platform, senderKey string) (string, error) {
	if r.qr == nil {
		return "❌ QR pairing is not enabled on this gateway.", nil
	}

	path, err := r.qr.Generate(fmt.Sprintf("truefriend://pair/%s/%s", platform, senderKey), true)
	if err != nil {
		return "", err
	}

	if err := r.relay.Enqueue(model.OutboundEnvelope{
		ID:             uuid.New().String(),
		Platform:       platform,
		Address:        senderKey,
		Text:           "📱 Scan this code from your other device to pair.",
		AttachmentPath: path,
	}); err != nil {
		if errors.Is(err, relay.ErrQueueClosed) {
			return "❌ QR delivery is unavailable right now.", nil
		}
		return "", err
	}

	return "", nil
}
