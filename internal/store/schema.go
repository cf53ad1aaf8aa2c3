package store

import (
	"database/sql"
	"fmt"
)

// Schema DDL. Statements are idempotent so startup can apply them on every
// boot, the same way the schema has always been managed for this database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT,
		rank INTEGER DEFAULT 1,
		points INTEGER DEFAULT 0,
		profile_image TEXT,
		status_message TEXT DEFAULT '',
		join_date DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_active DATETIME DEFAULT CURRENT_TIMESTAMP,
		is_banned INTEGER DEFAULT 0,
		ban_reason TEXT,
		is_muted INTEGER DEFAULT 0,
		mute_until DATETIME,
		is_guest INTEGER DEFAULT 0,
		guest_id TEXT,
		profile_music TEXT,
		message_background TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		creator_id INTEGER,
		is_quiz_room INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (creator_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		room_id INTEGER,
		message TEXT NOT NULL,
		image_url TEXT,
		quoted_message_id INTEGER,
		quoted_author TEXT,
		quoted_content TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		is_deleted INTEGER DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users (id),
		FOREIGN KEY (room_id) REFERENCES rooms (id)
	)`,
	`CREATE TABLE IF NOT EXISTS private_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER,
		receiver_id INTEGER,
		message TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		is_read INTEGER DEFAULT 0,
		FOREIGN KEY (sender_id) REFERENCES users (id),
		FOREIGN KEY (receiver_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS stories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		content TEXT NOT NULL,
		image_url TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS story_reactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id INTEGER,
		user_id INTEGER,
		reaction_type TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (story_id) REFERENCES stories (id),
		FOREIGN KEY (user_id) REFERENCES users (id),
		UNIQUE(story_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS story_comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id INTEGER,
		user_id INTEGER,
		comment TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (story_id) REFERENCES stories (id),
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT DEFAULT 'info',
		is_read INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages (room_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_private_messages_receiver ON private_messages (receiver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_story_reactions_story ON story_reactions (story_id)`,
}

// Default rooms. Room 1 is the main chat room, room 2 the quiz room; both are
// protected from deletion.
const seedRoomsStatement = `
	INSERT OR IGNORE INTO rooms (id, name, description, is_quiz_room) VALUES
	(1, 'الغرفة العامة', 'غرفة الدردشة الرئيسية', 0),
	(2, 'غرفة المسابقات', 'غرفة المسابقات والألعاب', 1)
`

// DefaultRoomMaxID marks the highest seeded room id; rooms at or below it
// cannot be deleted.
const DefaultRoomMaxID = 2

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

func applySchema(db *sql.DB) error {
	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if _, err := db.Exec(seedRoomsStatement); err != nil {
		return fmt.Errorf("failed to seed default rooms: %w", err)
	}
	return nil
}
