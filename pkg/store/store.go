// Package store is the persistence layer: identities, conversation state,
// the social graph and encrypted message logs, all in a single sqlite
// database opened in WAL mode so readers in one worker are not blocked by
// a writer in another.
package store

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tinyland-inc/truefriend/pkg/vault"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already registered")
	ErrBadRecovery   = errors.New("invalid recovery key")
)

type Store struct {
	db    *sqlx.DB
	vault *vault.Vault
}

// Open connects to the sqlite database at path, creating the schema on
// first use. The vault encrypts logged message content at rest.
func Open(path string, v *vault.Vault) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, vault: v}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// OpenMemory opens an isolated in-memory database, used by tests.
func OpenMemory(v *vault.Vault) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A second connection would see a different empty database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, vault: v}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and test fixtures.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) createTables() error {
	schema := []string{
		`create table if not exists users(
			id                 integer primary key autoincrement,
			username           text not null unique,
			email              text unique,
			password_hash      text not null,
			whatsapp_id        text,
			telegram_id        text,
			preferred_platform text,
			recovery_key       text,
			mood               text,
			self_gender        text,
			agent_gender       text,
			avatar_url         text,
			bio                text,
			system_prompt      text,
			verified           integer not null default 0,
			professional       integer not null default 0,
			chat_target        integer references users(id),
			last_seen          datetime not null default current_timestamp,
			created_at         datetime not null default current_timestamp
		)`,
		`create table if not exists conversation_states(
			sender_key text not null primary key,
			platform   text not null,
			state      text not null,
			fields     text not null default '{}'
		)`,
		`create table if not exists friendships(
			requester_id integer not null references users(id),
			target_id    integer not null references users(id),
			status       text not null default 'pending',
			created_at   datetime not null default current_timestamp,
			primary key(requester_id, target_id)
		)`,
		`create table if not exists blocks(
			blocker_id integer not null references users(id),
			blocked_id integer not null references users(id),
			created_at datetime not null default current_timestamp,
			primary key(blocker_id, blocked_id)
		)`,
		`create table if not exists follows(
			follower_id integer not null references users(id),
			target_id   integer not null references users(id),
			created_at  datetime not null default current_timestamp,
			primary key(follower_id, target_id)
		)`,
		`create table if not exists conversations(
			id         integer primary key autoincrement,
			user_id    integer not null references users(id),
			message    text not null,
			response   text not null,
			created_at datetime not null default current_timestamp
		)`,
		`create table if not exists private_messages(
			id         text not null primary key,
			sender_id  integer not null references users(id),
			target_id  integer not null references users(id),
			content    text not null,
			created_at datetime not null default current_timestamp
		)`,
		`create table if not exists reports(
			id         integer primary key autoincrement,
			user_id    integer not null references users(id),
			body       text not null,
			created_at datetime not null default current_timestamp
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	return nil
}
