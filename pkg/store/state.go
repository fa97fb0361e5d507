package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

// SetState upserts the conversation state for a platform-scoped sender
// key, replacing both the tag and the accumulated fields.
func (s *Store) SetState(senderKey string, platform model.Platform, tag model.StateTag, fields map[string]string) error {
	if fields == nil {
		fields = map[string]string{}
	}
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding state fields: %w", err)
	}

	_, err = s.db.Exec(
		`insert into conversation_states (sender_key, platform, state, fields)
		 values (?, ?, ?, ?)
		 on conflict(sender_key) do update set platform = ?, state = ?, fields = ?`,
		senderKey, string(platform), string(tag), string(blob),
		string(platform), string(tag), string(blob))
	if err != nil {
		return fmt.Errorf("writing conversation state: %w", err)
	}
	return nil
}

// GetState returns the current tag and fields for a sender key. Absence is
// a valid state: callers get StateNone and an empty map, never an error.
func (s *Store) GetState(senderKey string) (model.StateTag, map[string]string, error) {
	var row struct {
		State  string `db:"state"`
		Fields string `db:"fields"`
	}
	err := s.db.Get(&row, `select state, fields from conversation_states where sender_key = ?`, senderKey)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StateNone, map[string]string{}, nil
	}
	if err != nil {
		return model.StateNone, nil, fmt.Errorf("reading conversation state: %w", err)
	}

	fields := map[string]string{}
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return model.StateNone, nil, fmt.Errorf("decoding state fields: %w", err)
		}
	}

	return model.StateTag(row.State), fields, nil
}

// ClearState removes any state for the sender key; clearing an absent key
// is a no-op.
func (s *Store) ClearState(senderKey string) error {
	_, err := s.db.Exec(`delete from conversation_states where sender_key = ?`, senderKey)
	if err != nil {
		return fmt.Errorf("clearing conversation state: %w", err)
	}
	return nil
}
