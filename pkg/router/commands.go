package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/persona"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/store"
)

type command struct {
	minArgs int
	usage   string
	run     func(ctx context.Context, sess *session, args []string) (string, error)
}

func (r *Router) commandTable() map[string]command {
	return map[string]command{
		"/msg":             {2, "❌ Usage: /msg <username> <message>", r.cmdMsg},
		"/chat":            {1, "❌ Usage: /chat <username>", r.cmdChat},
		"/exit":            {0, "", r.cmdExit},
		"/block":           {1, "❌ Usage: /block <username>", r.cmdBlock},
		"/unblock":         {1, "❌ Usage: /unblock <username>", r.cmdUnblock},
		"/set_notify":      {1, "❌ Usage: /set_notify <whatsapp|telegram>", r.cmdSetNotify},
		"/add_friend":      {1, "❌ Usage: /add_friend <username>", r.cmdAddFriend},
		"/friend_requests": {0, "", r.cmdFriendRequests},
		"/friends":         {0, "", r.cmdFriends},
		"/accept":          {1, "❌ Usage: /accept <username>", r.cmdAccept},
		"/follow":          {1, "❌ Usage: /follow <username>", r.cmdFollow},
		"/mood":            {1, "❌ Usage: /mood <supportive|sarcastic|formal|mystical>", r.cmdMood},
		"/gender":          {2, "❌ Usage: /gender <your gender> <my gender>", r.cmdGender},
		"/love":            {2, "❌ Usage: /love <name1> <name2>", r.cmdLove},
		"/report":          {1, "❌ Usage: /report <what went wrong>", r.cmdReport},
		"/change_password": {1, "❌ Usage: /change_password <new_password>", r.cmdChangePassword},
		"/change_username": {1, "❌ Usage: /change_username <new_username>", r.cmdChangeUsername},
		"/search":          {1, "❌ Usage: /search <name prefix>", r.cmdSearch},
		"/info":            {1, "❌ Usage: /info <username>", r.cmdInfo},
		"/professional":    {0, "", r.cmdProfessional},
		"/settings":        {0, "", r.cmdSettings},
		"/usage":           {0, "", r.cmdUsage},
		"/whoami":          {0, "", r.cmdWhoami},
		"/help":            {0, "", r.cmdHelp},
		"/about":           {0, "", r.cmdAbout},
	}
}

func (r *Router) cmdMsg(ctx context.Context, sess *session, args []string) (string, error) {
	target := args[0]
	content := strings.Join(args[1:], " ")

	confirmation, err := r.relay.SendPrivate(ctx, sess.identity.ID, target, content)
	switch {
	case err == nil:
		return confirmation, nil
	case errors.Is(err, store.ErrNotFound):
		return "❌ User not found.", nil
	case errors.Is(err, relay.ErrBlocked):
		return fmt.Sprintf("🚫 You can't message %s — they have blocked you.", target), nil
	case errors.Is(err, relay.ErrNotFriends):
		return fmt.Sprintf("❌ You can only message friends. Send /add_friend %s first.", target), nil
	default:
		var unreachable *relay.UnreachableError
		if errors.As(err, &unreachable) {
			return fmt.Sprintf("❌ %s has no reachable device (last tried %s).", target, unreachable.Platform), nil
		}
		return "", err
	}
}

// cmdChat opens a tunnel. Establishment applies the same block and
// friendship checks as /msg, so the relay never has to bounce every
// forwarded message afterwards.
func (r *Router) cmdChat(_ context.Context, sess *session, args []string) (string, error) {
	target, err := r.store.GetByUsername(args[0])
	if errors.Is(err, store.ErrNotFound) {
		return "❌ User not found.", nil
	}
	if err != nil {
		return "", err
	}
	if target.ID == sess.identity.ID {
		return "❌ You can't open a chat with yourself.", nil
	}

	blocked, err := r.store.IsBlocked(target.ID, sess.identity.ID)
	if err != nil {
		return "", err
	}
	if blocked {
		return fmt.Sprintf("🚫 You can't chat with %s — they have blocked you.", target.Username), nil
	}

	friends, err := r.store.AreFriends(sess.identity.ID, target.ID)
	if err != nil {
		return "", err
	}
	if !friends {
		return fmt.Sprintf("❌ You can only chat with friends. Send /add_friend %s first.", target.Username), nil
	}

	if err := r.store.SetChatTarget(sess.identity.ID, &target.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("💬 You are now chatting with %s. Everything you send goes to them. Send /exit to leave.", target.Username), nil
}

func (r *Router) cmdExit(_ context.Context, sess *session, _ []string) (string, error) {
	if !sess.identity.ChatTarget.Valid {
		return "ℹ️ You're not in a private chat.", nil
	}
	if err := r.store.SetChatTarget(sess.identity.ID, nil); err != nil {
		return "", err
	}
	return "👋 Left the private chat. You're talking to me again!", nil
}

func (r *Router) cmdBlock(_ context.Context, sess *session, args []string) (string, error) {
	err := r.store.Block(sess.identity.ID, args[0])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "❌ User not found.", nil
	case errors.Is(err, store.ErrSelfRelation):
		return "❌ You can't block yourself.", nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("🚫 %s is now blocked and can no longer message you.", args[0]), nil
}

func (r *Router) cmdUnblock(_ context.Context, sess *session, args []string) (string, error) {
	err := r.store.Unblock(sess.identity.ID, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return "❌ User not found.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s is unblocked.", args[0]), nil
}

func (r *Router) cmdSetNotify(_ context.Context, sess *session, args []string) (string, error) {
	platform := model.Platform(strings.ToLower(args[0]))
	if !platform.Valid() {
		return "❌ Usage: /set_notify <whatsapp|telegram>", nil
	}
	if err := r.store.SetPreferredPlatform(sess.identity.ID, platform); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔔 Got it — I'll deliver your messages on %s when possible.", platform), nil
}

func (r *Router) cmdAddFriend(_ context.Context, sess *session, args []string) (string, error) {
	err := r.store.SendFriendRequest(sess.identity.ID, args[0])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "❌ User not found.", nil
	case errors.Is(err, store.ErrSelfRelation):
		return "❌ You can't add yourself.", nil
	case errors.Is(err, store.ErrAlreadyFriends):
		return fmt.Sprintf("👥 You and %s are already friends.", args[0]), nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("📩 Friend request sent to %s!", args[0]), nil
}

func (r *Router) cmdFriendRequests(_ context.Context, sess *session, _ []string) (string, error) {
	requests, err := r.store.PendingRequests(sess.identity.ID)
	if err != nil {
		return "", err
	}
	if len(requests) == 0 {
		return "📩 No pending friend requests.", nil
	}
	var b strings.Builder
	b.WriteString("📩 Pending friend requests:\n")
	for _, name := range requests {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	b.WriteString("\nUse /accept <username> to become friends.")
	return b.String(), nil
}

func (r *Router) cmdFriends(_ context.Context, sess *session, _ []string) (string, error) {
	friends, err := r.store.Friends(sess.identity.ID)
	if err != nil {
		return "", err
	}
	if len(friends) == 0 {
		return "👥 You haven't added any friends yet. Try /add_friend <username>!", nil
	}
	var b strings.Builder
	b.WriteString("👥 Your friends:\n")
	for _, name := range friends {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) cmdAccept(_ context.Context, sess *session, args []string) (string, error) {
	err := r.store.AcceptFriendRequest(sess.identity.ID, args[0])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "❌ User not found.", nil
	case errors.Is(err, store.ErrNoRequest):
		return fmt.Sprintf("❌ No pending request from %s.", args[0]), nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("🎉 You and %s are now friends! Say hi with /msg %s <text>.", args[0], args[0]), nil
}

func (r *Router) cmdFollow(_ context.Context, sess *session, args []string) (string, error) {
	err := r.store.Follow(sess.identity.ID, args[0])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "❌ User not found.", nil
	case errors.Is(err, store.ErrSelfRelation):
		return "❌ You can't follow yourself.", nil
	case errors.Is(err, store.ErrAlreadyFollowed):
		return fmt.Sprintf("ℹ️ You're already following %s.", args[0]), nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("⭐ You are now following %s.", args[0]), nil
}

func (r *Router) cmdMood(_ context.Context, sess *session, args []string) (string, error) {
	mood := model.Mood(strings.ToLower(args[0]))
	known := false
	for _, m := range model.KnownMoods {
		if m == mood {
			known = true
			break
		}
	}
	if !known {
		return "❌ Usage: /mood <supportive|sarcastic|formal|mystical>", nil
	}

	if err := r.store.SetMood(sess.identity.ID, mood); err != nil {
		return "", err
	}
	if err := r.rebuildPrompt(sess.identity.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🎭 Mood switched to %s. You'll feel the difference!", mood), nil
}

func (r *Router) cmdGender(_ context.Context, sess *session, args []string) (string, error) {
	self := persona.ParseGender(args[0])
	agent := persona.ParseGender(args[1])

	if err := r.store.SetGenders(sess.identity.ID, self, agent); err != nil {
		return "", err
	}
	if err := r.rebuildPrompt(sess.identity.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Noted — you're %s, and I'll present as %s.", self, agent), nil
}

// cmdLove is the classic compatibility toy. The score depends only on
// the names, so the same pair always gets the same verdict.
func (r *Router) cmdLove(_ context.Context, _ *session, args []string) (string, error) {
	pct := loveScore(args[0], args[1])

	var verdict string
	switch {
	case pct > 85:
		verdict = "💖 A match made in heaven!"
	case pct > 60:
		verdict = "❤️ Great potential!"
	case pct > 40:
		verdict = "💛 Could work out!"
	default:
		verdict = "💔 Maybe just friends?"
	}
	return fmt.Sprintf("💘 Love Calculator\n%s + %s = %d%%\n%s",
		titleName(args[0]), titleName(args[1]), pct, verdict), nil
}

func loveScore(a, b string) int {
	combined := strings.ToLower(strings.TrimSpace(a)) + strings.ToLower(strings.TrimSpace(b))
	score := 0
	for _, c := range combined {
		score += int(c)
	}
	return score * 7 % 101
}

func titleName(name string) string {
	runes := []rune(strings.ToLower(strings.TrimSpace(name)))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func (r *Router) cmdReport(_ context.Context, sess *session, args []string) (string, error) {
	if err := r.store.SaveReport(sess.identity.ID, strings.Join(args, " ")); err != nil {
		return "", err
	}
	return "📝 Thanks, your report was recorded. Someone will take a look.", nil
}

func (r *Router) cmdChangePassword(_ context.Context, sess *session, args []string) (string, error) {
	if len(args[0]) < 6 {
		return "❌ Password must be at least 6 characters.", nil
	}
	if err := r.store.ChangePassword(sess.identity.ID, args[0]); err != nil {
		return "", err
	}
	return "✅ Password updated successfully!", nil
}

func (r *Router) cmdChangeUsername(_ context.Context, sess *session, args []string) (string, error) {
	if len(args[0]) < 3 {
		return "❌ Username must be at least 3 characters.", nil
	}
	err := r.store.ChangeUsername(sess.identity.ID, args[0])
	if errors.Is(err, store.ErrUsernameTaken) {
		return "❌ Username already exists.", nil
	}
	if err != nil {
		return "", err
	}
	if err := r.rebuildPrompt(sess.identity.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ You are now known as %s.", args[0]), nil
}

func (r *Router) cmdSearch(_ context.Context, _ *session, args []string) (string, error) {
	names, err := r.store.SearchUsernames(args[0], 10)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return fmt.Sprintf("🔍 Search results for %q: nobody found.", args[0]), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Search results for %q:\n", args[0])
	for _, name := range names {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) cmdInfo(_ context.Context, sess *session, args []string) (string, error) {
	target, err := r.store.GetByUsername(args[0])
	if errors.Is(err, store.ErrNotFound) {
		return "❌ User not found.", nil
	}
	if err != nil {
		return "", err
	}

	mutuals, err := r.store.MutualFriends(sess.identity.ID, target.ID)
	if err != nil {
		return "", err
	}
	followers, err := r.store.FollowerCount(target.ID)
	if err != nil {
		return "", err
	}

	badge := ""
	if target.Verified {
		badge = " ☑️"
	}
	bio := target.Bio.String
	if bio == "" {
		bio = "—"
	}
	return fmt.Sprintf("👤 Profile: %s%s\nBio: %s\nFollowers: %d\nMutuals: %d",
		target.Username, badge, bio, followers, mutuals), nil
}

func (r *Router) cmdProfessional(_ context.Context, sess *session, _ []string) (string, error) {
	next := !sess.identity.Professional
	if err := r.store.SetProfessional(sess.identity.ID, next); err != nil {
		return "", err
	}
	if next {
		return "💼 Professional Mode enabled. Your profile now shows follower stats.", nil
	}
	return "💼 Professional Mode disabled.", nil
}

func (r *Router) cmdSettings(_ context.Context, sess *session, _ []string) (string, error) {
	preferred := sess.identity.PreferredPlatform.String
	if preferred == "" {
		preferred = "whatsapp"
	}
	return fmt.Sprintf(
		"⚙️ TrueFriend Settings Menu\n\n"+
			"• Mood: %s (/mood <name>)\n"+
			"• Delivery platform: %s (/set_notify <platform>)\n"+
			"• Username: %s (/change_username <name>)\n"+
			"• Password: /change_password <new>\n"+
			"• Genders: /gender <yours> <mine>",
		sess.identity.MoodTag(), preferred, sess.identity.Username), nil
}

func (r *Router) cmdUsage(_ context.Context, sess *session, _ []string) (string, error) {
	turns, err := r.store.ConversationCount(sess.identity.ID)
	if err != nil {
		return "", err
	}
	friends, err := r.store.Friends(sess.identity.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"📊 TrueFriend Report for %s\n\n• Chat turns: %d\n• Friends: %d\n• Member since: %s",
		sess.identity.Username, turns, len(friends),
		sess.identity.CreatedAt.Format("2 Jan 2006")), nil
}

func (r *Router) cmdWhoami(_ context.Context, sess *session, _ []string) (string, error) {
	return fmt.Sprintf("🪪 You are %s (via %s).", sess.identity.Username, sess.platform), nil
}

func (r *Router) cmdHelp(_ context.Context, _ *session, _ []string) (string, error) {
	return "💡 TrueFriend commands:\n\n" +
		"Social: /add_friend /accept /friends /friend_requests /follow /block /unblock\n" +
		"Messaging: /msg <user> <text>, /chat <user>, /exit\n" +
		"Account: /settings /set_notify /mood /gender /change_password /change_username /qr\n" +
		"Discovery: /search <prefix>, /info <user>\n" +
		"Other: /love <a> <b>, /usage /whoami /report /about\n\n" +
		"Anything else is just... talking to me. 💬", nil
}

func (r *Router) cmdAbout(_ context.Context, _ *session, _ []string) (string, error) {
	return "👑 TrueFriend — one friend, every app. Your account, friends, and history follow you across platforms.", nil
}

// rebuildPrompt re-derives the stored system instruction after a
// personalization change.
func (r *Router) rebuildPrompt(id int64) error {
	u, err := r.store.GetByID(id)
	if err != nil {
		return err
	}
	instruction := persona.Build(
		u.Username,
		u.MoodTag(),
		model.Gender(u.SelfGender.String),
		model.Gender(u.AgentGender.String),
	)
	return r.store.SetSystemPrompt(id, instruction)
}
