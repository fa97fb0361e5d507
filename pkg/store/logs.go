package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tinyland-inc/truefriend/pkg/vault"
)

// LogConversation persists one chat exchange. Both sides are encrypted at
// rest when a vault is configured.
func (s *Store) LogConversation(userID int64, message, response string) error {
	msg, err := s.seal(message)
	if err != nil {
		return err
	}
	resp, err := s.seal(response)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`insert into conversations (user_id, message, response) values (?, ?, ?)`,
		userID, msg, resp)
	if err != nil {
		return fmt.Errorf("logging conversation: %w", err)
	}
	return nil
}

// RecentHistory returns the last n exchanges for a user, oldest first,
// decrypted for use as completion context.
func (s *Store) RecentHistory(userID int64, n int) ([][2]string, error) {
	var rows []struct {
		Message  string `db:"message"`
		Response string `db:"response"`
	}
	err := s.db.Select(&rows,
		`select message, response from (
			select id, message, response from conversations
			where user_id = ? order by id desc limit ?
		 ) order by id asc`,
		userID, n)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	history := make([][2]string, 0, len(rows))
	for _, r := range rows {
		msg, err := s.open(r.Message)
		if err != nil {
			return nil, err
		}
		resp, err := s.open(r.Response)
		if err != nil {
			return nil, err
		}
		history = append(history, [2]string{msg, resp})
	}
	return history, nil
}

// LogPrivateMessage records a relayed message with encrypted content.
func (s *Store) LogPrivateMessage(senderID, targetID int64, content string) error {
	sealed, err := s.seal(content)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`insert into private_messages (id, sender_id, target_id, content) values (?, ?, ?, ?)`,
		uuid.New().String(), senderID, targetID, sealed)
	if err != nil {
		return fmt.Errorf("logging private message: %w", err)
	}
	return nil
}

// SaveReport stores a user-submitted report for operator review.
func (s *Store) SaveReport(userID int64, body string) error {
	_, err := s.db.Exec(`insert into reports (user_id, body) values (?, ?)`, userID, body)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// ConversationCount backs the /usage dashboard.
func (s *Store) ConversationCount(userID int64) (int, error) {
	var n int
	err := s.db.Get(&n, `select count(*) from conversations where user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("counting conversations: %w", err)
	}
	return n, nil
}

// EncryptPlaintextLogs rewrites any logged content still stored without
// the ciphertext prefix. It is the one-time migration pass behind the
// migrate subcommand; the read-side plaintext fallback exists only until
// this has run.
func (s *Store) EncryptPlaintextLogs() (int, error) {
	if s.vault == nil {
		return 0, fmt.Errorf("no encryption key configured")
	}

	migrated := 0

	var convs []struct {
		ID       int64  `db:"id"`
		Message  string `db:"message"`
		Response string `db:"response"`
	}
	if err := s.db.Select(&convs, `select id, message, response from conversations`); err != nil {
		return 0, fmt.Errorf("scanning conversations: %w", err)
	}
	for _, c := range convs {
		if vault.IsEncrypted(c.Message) && vault.IsEncrypted(c.Response) {
			continue
		}
		msg, err := s.seal(c.Message)
		if err != nil {
			return migrated, err
		}
		resp, err := s.seal(c.Response)
		if err != nil {
			return migrated, err
		}
		if _, err := s.db.Exec(
			`update conversations set message = ?, response = ? where id = ?`, msg, resp, c.ID); err != nil {
			return migrated, fmt.Errorf("rewriting conversation %d: %w", c.ID, err)
		}
		migrated++
	}

	var msgs []struct {
		ID      string `db:"id"`
		Content string `db:"content"`
	}
	if err := s.db.Select(&msgs, `select id, content from private_messages`); err != nil {
		return migrated, fmt.Errorf("scanning private messages: %w", err)
	}
	for _, m := range msgs {
		if vault.IsEncrypted(m.Content) {
			continue
		}
		sealed, err := s.seal(m.Content)
		if err != nil {
			return migrated, err
		}
		if _, err := s.db.Exec(
			`update private_messages set content = ? where id = ?`, sealed, m.ID); err != nil {
			return migrated, fmt.Errorf("rewriting message %s: %w", m.ID, err)
		}
		migrated++
	}

	return migrated, nil
}

func (s *Store) seal(plaintext string) (string, error) {
	if s.vault == nil {
		return plaintext, nil
	}
	sealed, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypting content: %w", err)
	}
	return sealed, nil
}

func (s *Store) open(stored string) (string, error) {
	if s.vault == nil {
		return stored, nil
	}
	plain, err := s.vault.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypting content: %w", err)
	}
	return plain, nil
}
