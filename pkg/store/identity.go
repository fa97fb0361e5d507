package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

// NewIdentity carries the fields collected by the registration flow.
type NewIdentity struct {
	Username    string
	Email       string
	Password    string
	Platform    model.Platform
	SenderKey   string
	SelfGender  model.Gender
	AgentGender model.Gender
	AvatarURL   string
	Bio         string
}

// CreateIdentity inserts a new user, binds the originating platform
// address and returns the id plus the single-use recovery key. Duplicate
// usernames and emails map to typed errors so callers can surface them
// without leaking SQL detail.
func (s *Store) CreateIdentity(in NewIdentity) (int64, string, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, "", fmt.Errorf("creating user: %w", err)
	}
	defer tx.Rollback()

	id, recoveryKey, err := insertIdentity(tx, in)
	if err != nil {
		return 0, "", err
	}
	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("creating user: %w", err)
	}
	return id, recoveryKey, nil
}

// CompleteRegistration finalizes the onboarding flow in one transaction:
// the user row, its platform binding, the persona settings, and the
// removal of the flow state land together or not at all.
func (s *Store) CompleteRegistration(in NewIdentity, mood model.Mood, systemPrompt string) (int64, string, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, "", fmt.Errorf("completing registration: %w", err)
	}
	defer tx.Rollback()

	id, recoveryKey, err := insertIdentity(tx, in)
	if err != nil {
		return 0, "", err
	}
	if _, err := tx.Exec(`update users set mood = ?, system_prompt = ? where id = ?`,
		string(mood), systemPrompt, id); err != nil {
		return 0, "", fmt.Errorf("storing persona: %w", err)
	}
	if _, err := tx.Exec(`delete from conversation_states where sender_key = ?`, in.SenderKey); err != nil {
		return 0, "", fmt.Errorf("clearing conversation state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("completing registration: %w", err)
	}
	return id, recoveryKey, nil
}

func insertIdentity(tx *sqlx.Tx, in NewIdentity) (int64, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", fmt.Errorf("hashing password: %w", err)
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, "", fmt.Errorf("generating recovery key: %w", err)
	}
	recoveryKey := hex.EncodeToString(buf)

	var email any
	if in.Email != "" {
		email = in.Email
	}

	res, err := tx.Exec(
		`insert into users
			(username, email, password_hash, recovery_key, self_gender, agent_gender, avatar_url, bio, preferred_platform)
		 values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Username, email, string(hash), recoveryKey,
		string(in.SelfGender), string(in.AgentGender), in.AvatarURL, in.Bio, string(in.Platform),
	)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "users.username"):
			return 0, "", ErrUsernameTaken
		case strings.Contains(err.Error(), "users.email"):
			return 0, "", ErrEmailTaken
		default:
			return 0, "", fmt.Errorf("inserting user: %w", err)
		}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("reading new user id: %w", err)
	}

	if in.SenderKey != "" {
		if err := bindPlatform(tx, id, in.Platform, in.SenderKey); err != nil {
			return 0, "", err
		}
	}

	return id, recoveryKey, nil
}

// VerifyLogin resolves a username/password pair to the user id using a
// constant-structure bcrypt comparison. A wrong password and an unknown
// username both return ErrNotFound.
func (s *Store) VerifyLogin(username, password string) (int64, error) {
	var row struct {
		ID           int64  `db:"id"`
		PasswordHash string `db:"password_hash"`
	}
	err := s.db.Get(&row, `select id, password_hash from users where username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetching credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return 0, ErrNotFound
	}

	return row.ID, nil
}

const identityColumns = `id, username, email, password_hash, whatsapp_id, telegram_id,
	preferred_platform, recovery_key, mood, self_gender, agent_gender, avatar_url, bio,
	system_prompt, verified, professional, chat_target, last_seen, created_at`

func (s *Store) GetByID(id int64) (*model.Identity, error) {
	u := &model.Identity{}
	err := s.db.Get(u, `select `+identityColumns+` from users where id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

func (s *Store) GetByUsername(username string) (*model.Identity, error) {
	u := &model.Identity{}
	err := s.db.Get(u, `select `+identityColumns+` from users where username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

// GetByPlatform resolves the identity currently bound to a platform-scoped
// sender key.
func (s *Store) GetByPlatform(platform model.Platform, senderKey string) (*model.Identity, error) {
	u := &model.Identity{}
	err := s.db.Get(u,
		`select `+identityColumns+` from users where `+platformColumn(platform)+` = ?`, senderKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user by platform: %w", err)
	}
	return u, nil
}

// BindPlatform attaches a platform address to the identity, replacing any
// previous binding on that platform. The address is released from any
// other identity holding it so a sender key resolves to one user.
func (s *Store) BindPlatform(id int64, platform model.Platform, senderKey string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("binding platform address: %w", err)
	}
	defer tx.Rollback()

	if err := bindPlatform(tx, id, platform, senderKey); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("binding platform address: %w", err)
	}
	return nil
}

func bindPlatform(tx *sqlx.Tx, id int64, platform model.Platform, senderKey string) error {
	col := platformColumn(platform)
	if _, err := tx.Exec(`update users set `+col+` = null where `+col+` = ? and id != ?`,
		senderKey, id); err != nil {
		return fmt.Errorf("releasing stale platform binding: %w", err)
	}
	if _, err := tx.Exec(`update users set `+col+` = ? where id = ?`, senderKey, id); err != nil {
		return fmt.Errorf("binding platform address: %w", err)
	}
	return nil
}

func platformColumn(platform model.Platform) string {
	if platform == model.PlatformTelegram {
		return "telegram_id"
	}
	return "whatsapp_id"
}

func (s *Store) SetPreferredPlatform(id int64, platform model.Platform) error {
	_, err := s.db.Exec(`update users set preferred_platform = ? where id = ?`, string(platform), id)
	if err != nil {
		return fmt.Errorf("updating preferred platform: %w", err)
	}
	return nil
}

// TouchLastSeen records activity for the engagement scheduler.
func (s *Store) TouchLastSeen(id int64) error {
	_, err := s.db.Exec(`update users set last_seen = current_timestamp where id = ?`, id)
	if err != nil {
		return fmt.Errorf("updating last seen: %w", err)
	}
	return nil
}

func (s *Store) SetMood(id int64, mood model.Mood) error {
	_, err := s.db.Exec(`update users set mood = ? where id = ?`, string(mood), id)
	if err != nil {
		return fmt.Errorf("updating mood: %w", err)
	}
	return nil
}

func (s *Store) SetGenders(id int64, self, agent model.Gender) error {
	_, err := s.db.Exec(`update users set self_gender = ?, agent_gender = ? where id = ?`,
		string(self), string(agent), id)
	if err != nil {
		return fmt.Errorf("updating genders: %w", err)
	}
	return nil
}

func (s *Store) SetSystemPrompt(id int64, prompt string) error {
	_, err := s.db.Exec(`update users set system_prompt = ? where id = ?`, prompt, id)
	if err != nil {
		return fmt.Errorf("updating system prompt: %w", err)
	}
	return nil
}

func (s *Store) ChangePassword(id int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = s.db.Exec(`update users set password_hash = ? where id = ?`, string(hash), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (s *Store) ChangeUsername(id int64, newUsername string) error {
	_, err := s.db.Exec(`update users set username = ? where id = ?`, newUsername, id)
	if err != nil {
		if strings.Contains(err.Error(), "users.username") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("updating username: %w", err)
	}
	return nil
}

// RecoverAccount resets the password for the identity holding the given
// recovery key and rotates the key so it cannot be replayed.
func (s *Store) RecoverAccount(recoveryKey, newPassword string) (string, error) {
	var row struct {
		ID       int64  `db:"id"`
		Username string `db:"username"`
	}
	err := s.db.Get(&row, `select id, username from users where recovery_key = ?`, recoveryKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrBadRecovery
	}
	if err != nil {
		return "", fmt.Errorf("fetching recovery key: %w", err)
	}

	if err := s.ChangePassword(row.ID, newPassword); err != nil {
		return "", err
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rotating recovery key: %w", err)
	}
	if _, err := s.db.Exec(`update users set recovery_key = ? where id = ?`,
		hex.EncodeToString(buf), row.ID); err != nil {
		return "", fmt.Errorf("rotating recovery key: %w", err)
	}

	return row.Username, nil
}

// SetChatTarget points an identity's active chat tunnel at target, or
// clears it when target is nil.
func (s *Store) SetChatTarget(id int64, target *int64) error {
	var v any
	if target != nil {
		v = *target
	}
	_, err := s.db.Exec(`update users set chat_target = ? where id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("updating chat target: %w", err)
	}
	return nil
}

func (s *Store) SetVerified(id int64, verified bool) error {
	_, err := s.db.Exec(`update users set verified = ? where id = ?`, verified, id)
	if err != nil {
		return fmt.Errorf("updating verified flag: %w", err)
	}
	return nil
}

func (s *Store) SetProfessional(id int64, professional bool) error {
	_, err := s.db.Exec(`update users set professional = ? where id = ?`, professional, id)
	if err != nil {
		return fmt.Errorf("updating professional flag: %w", err)
	}
	return nil
}

// SearchUsernames returns usernames starting with the given prefix.
func (s *Store) SearchUsernames(prefix string, limit int) ([]string, error) {
	var names []string
	err := s.db.Select(&names,
		`select username from users where username like ? order by username limit ?`,
		prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching usernames: %w", err)
	}
	return names, nil
}

// InactiveSince lists identities whose last activity is older than the
// given number of hours.
func (s *Store) InactiveSince(hours int) ([]model.Identity, error) {
	var users []model.Identity
	err := s.db.Select(&users,
		`select `+identityColumns+` from users
		 where last_seen < datetime('now', ?)`,
		fmt.Sprintf("-%d hours", hours))
	if err != nil {
		return nil, fmt.Errorf("listing inactive users: %w", err)
	}
	return users, nil
}
