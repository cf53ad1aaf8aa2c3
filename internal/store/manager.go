package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// Manager implements interfaces.Store on SQLite. All writes are funneled
// through a single goroutine; SQLite allows one writer at a time and the
// funnel avoids busy-lock contention under concurrent handlers. Reads go
// straight to the connection pool.
type Manager struct {
	db       *sql.DB
	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
}

type writeOp struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, applies the schema and seed rooms, and
// starts the writer goroutine.
func NewManager(path string, busyTimeout time.Duration) (*Manager, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; restrict the pool so every
	// query sees the same database.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
	}

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	m := &Manager{
		db:       db,
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.writeLoop()
	return m, nil
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()
	for {
		select {
		case op := <-m.writeCh:
			op.result <- op.operation(m.db)
		case <-m.shutdown:
			log.Println("store: write loop shutting down")
			return
		}
	}
}

func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case m.writeCh <- writeOp{operation: operation, result: result}:
		return <-result
	case <-m.shutdown:
		return fmt.Errorf("store is shutting down")
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	}
}

// Close drains the writer and closes the pool. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()
	return m.db.Close()
}

// DB exposes the pool for schema checks in tests.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// ---- users ----

const userColumns = `id, email, display_name, password_hash, rank, points, profile_image,
	status_message, join_date, last_active, is_banned, ban_reason, is_muted, mute_until,
	is_guest, guest_id, profile_music, message_background`

func scanUser(row interface{ Scan(...any) error }) (*types.User, error) {
	var u types.User
	var email, passwordHash, profileImage, statusMessage, banReason, guestID, music, background sql.NullString
	var muteUntil sql.NullTime
	err := row.Scan(
		&u.ID, &email, &u.DisplayName, &passwordHash, &u.Rank, &u.Points, &profileImage,
		&statusMessage, &u.JoinDate, &u.LastActive, &u.IsBanned, &banReason, &u.IsMuted, &muteUntil,
		&u.IsGuest, &guestID, &music, &background,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	u.PasswordHash = passwordHash.String
	u.StatusMessage = statusMessage.String
	if profileImage.Valid {
		u.ProfileImage = &profileImage.String
	}
	if banReason.Valid {
		u.BanReason = &banReason.String
	}
	if muteUntil.Valid {
		u.MuteUntil = &muteUntil.Time
	}
	if guestID.Valid {
		u.GuestID = &guestID.String
	}
	if music.Valid {
		u.ProfileMusic = &music.String
	}
	if background.Valid {
		u.MessageBg = &background.String
	}
	return &u, nil
}

func (m *Manager) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*types.User, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO users (email, display_name, password_hash) VALUES (?, ?, ?)`,
			email, displayName, passwordHash)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return interfaces.ErrEmailTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.GetUser(ctx, id)
}

func (m *Manager) CreateGuest(ctx context.Context, displayName, guestID string) (*types.User, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		// Guests get the visitor rank, below the registered-user default.
		res, err := db.ExecContext(ctx,
			`INSERT INTO users (display_name, is_guest, guest_id, rank) VALUES (?, 1, ?, 0)`,
			displayName, guestID)
		if err != nil {
			return fmt.Errorf("failed to insert guest: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.GetUser(ctx, id)
}

func (m *Manager) GetUser(ctx context.Context, id int64) (*types.User, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (m *Manager) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (m *Manager) ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY join_date DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (m *Manager) TouchLastActive(ctx context.Context, id int64) error {
	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE users SET last_active = CURRENT_TIMESTAMP WHERE id = ?`, id)
		return err
	})
}

func (m *Manager) SetMuted(ctx context.Context, id int64, muted bool, until *time.Time) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET is_muted = ?, mute_until = ? WHERE id = ?`, muted, until, id)
		if err != nil {
			return fmt.Errorf("failed to update mute state: %w", err)
		}
		return requireRowChanged(res)
	})
}

func (m *Manager) SetBanned(ctx context.Context, id int64, banned bool, reason *string) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET is_banned = ?, ban_reason = ? WHERE id = ?`, banned, reason, id)
		if err != nil {
			return fmt.Errorf("failed to update ban state: %w", err)
		}
		return requireRowChanged(res)
	})
}

func (m *Manager) SetRank(ctx context.Context, id int64, rank int) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET rank = ? WHERE id = ?`, rank, id)
		if err != nil {
			return fmt.Errorf("failed to update rank: %w", err)
		}
		return requireRowChanged(res)
	})
}

func (m *Manager) AddPoints(ctx context.Context, id int64, delta int) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET points = points + ? WHERE id = ?`, delta, id)
		if err != nil {
			return fmt.Errorf("failed to update points: %w", err)
		}
		return requireRowChanged(res)
	})
}

func (m *Manager) SetProfileMusic(ctx context.Context, id int64, url *string) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET profile_music = ? WHERE id = ?`, url, id)
		if err != nil {
			return fmt.Errorf("failed to update profile music: %w", err)
		}
		return requireRowChanged(res)
	})
}

func (m *Manager) SetMessageBackground(ctx context.Context, id int64, url *string) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE users SET message_background = ? WHERE id = ?`, url, id)
		if err != nil {
			return fmt.Errorf("failed to update message background: %w", err)
		}
		return requireRowChanged(res)
	})
}

func requireRowChanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrUserNotFound
	}
	return nil
}

// ---- rooms ----

func (m *Manager) ListRooms(ctx context.Context) ([]*types.Room, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, name, description, creator_id, is_quiz_room, created_at FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []*types.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func scanRoom(row interface{ Scan(...any) error }) (*types.Room, error) {
	var r types.Room
	var description sql.NullString
	var creatorID sql.NullInt64
	if err := row.Scan(&r.ID, &r.Name, &description, &creatorID, &r.IsQuizRoom, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Description = description.String
	if creatorID.Valid {
		r.CreatorID = &creatorID.Int64
	}
	return &r, nil
}

func (m *Manager) GetRoom(ctx context.Context, id int64) (*types.Room, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, name, description, creator_id, is_quiz_room, created_at FROM rooms WHERE id = ?`, id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return r, nil
}

func (m *Manager) CreateRoom(ctx context.Context, name, description string, creatorID int64, isQuizRoom bool) (*types.Room, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO rooms (name, description, creator_id, is_quiz_room) VALUES (?, ?, ?, ?)`,
			name, description, creatorID, isQuizRoom)
		if err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.GetRoom(ctx, id)
}

func (m *Manager) DeleteRoom(ctx context.Context, id int64) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return interfaces.ErrRoomNotFound
		}
		return nil
	})
}

// ---- messages ----

func (m *Manager) InsertMessage(ctx context.Context, msg *types.Message) (int64, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO messages (user_id, room_id, message, image_url, quoted_message_id, quoted_author, quoted_content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.UserID, msg.RoomID, msg.Message, msg.ImageURL,
			msg.QuotedMessageID, msg.QuotedAuthor, msg.QuotedContent, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (m *Manager) ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) ([]*types.Message, error) {
	// Newest page first, returned in chronological order.
	rows, err := m.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.room_id, m.message, m.image_url,
		       m.quoted_message_id, m.quoted_author, m.quoted_content, m.timestamp,
		       u.display_name, u.profile_image, u.rank
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.room_id = ? AND m.is_deleted = 0
		ORDER BY m.timestamp DESC
		LIMIT ? OFFSET ?`, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*types.Message
	for rows.Next() {
		var msg types.Message
		var imageURL, quotedAuthor, quotedContent, displayName, profileImage sql.NullString
		var quotedID sql.NullInt64
		var rank sql.NullInt64
		err := rows.Scan(&msg.ID, &msg.UserID, &msg.RoomID, &msg.Message, &imageURL,
			&quotedID, &quotedAuthor, &quotedContent, &msg.Timestamp,
			&displayName, &profileImage, &rank)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if imageURL.Valid {
			msg.ImageURL = &imageURL.String
		}
		if quotedID.Valid {
			msg.QuotedMessageID = &quotedID.Int64
		}
		if quotedAuthor.Valid {
			msg.QuotedAuthor = &quotedAuthor.String
		}
		if quotedContent.Valid {
			msg.QuotedContent = &quotedContent.String
		}
		msg.DisplayName = displayName.String
		if profileImage.Valid {
			msg.ProfileImage = &profileImage.String
		}
		msg.Rank = int(rank.Int64)
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into ascending timestamp order for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (m *Manager) InsertPrivateMessage(ctx context.Context, msg *types.PrivateMessage) (int64, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO private_messages (sender_id, receiver_id, message, timestamp) VALUES (?, ?, ?, ?)`,
			msg.SenderID, msg.ReceiverID, msg.Message, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert private message: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ---- stories ----

func (m *Manager) InsertStory(ctx context.Context, userID int64, content string, imageURL *string) (*types.Story, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO stories (user_id, content, image_url) VALUES (?, ?, ?)`,
			userID, content, imageURL)
		if err != nil {
			return fmt.Errorf("failed to insert story: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.getStory(ctx, id)
}

const storyQuery = `
	SELECT s.id, s.user_id, s.content, s.image_url, s.timestamp,
	       u.display_name, u.profile_image, u.rank,
	       (SELECT COUNT(*) FROM story_reactions WHERE story_id = s.id AND reaction_type = 'like') AS likes,
	       (SELECT COUNT(*) FROM story_reactions WHERE story_id = s.id AND reaction_type = 'dislike') AS dislikes,
	       (SELECT COUNT(*) FROM story_reactions WHERE story_id = s.id AND reaction_type = 'love') AS loves,
	       (SELECT COUNT(*) FROM story_comments WHERE story_id = s.id) AS comment_count
	FROM stories s
	LEFT JOIN users u ON s.user_id = u.id`

func scanStory(row interface{ Scan(...any) error }) (*types.Story, error) {
	var s types.Story
	var imageURL, displayName, profileImage sql.NullString
	var rank sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &s.Content, &imageURL, &s.Timestamp,
		&displayName, &profileImage, &rank,
		&s.Likes, &s.Dislikes, &s.Loves, &s.CommentCount)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		s.ImageURL = &imageURL.String
	}
	s.DisplayName = displayName.String
	if profileImage.Valid {
		s.ProfileImage = &profileImage.String
	}
	s.Rank = int(rank.Int64)
	return &s, nil
}

func (m *Manager) getStory(ctx context.Context, id int64) (*types.Story, error) {
	row := m.db.QueryRowContext(ctx, storyQuery+` WHERE s.id = ?`, id)
	s, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query story: %w", err)
	}
	return s, nil
}

func (m *Manager) ListStories(ctx context.Context, limit, offset int) ([]*types.Story, error) {
	rows, err := m.db.QueryContext(ctx, storyQuery+` ORDER BY s.timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stories []*types.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// SetStoryReaction replaces any previous reaction by the same user and
// returns the updated counts.
func (m *Manager) SetStoryReaction(ctx context.Context, storyID, userID int64, reaction string) (*types.StoryReactions, error) {
	err := m.executeWrite(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM story_reactions WHERE story_id = ? AND user_id = ?`, storyID, userID); err != nil {
			return fmt.Errorf("failed to clear previous reaction: %w", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO story_reactions (story_id, user_id, reaction_type) VALUES (?, ?, ?)`,
			storyID, userID, reaction); err != nil {
			return fmt.Errorf("failed to insert reaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT reaction_type, COUNT(*) FROM story_reactions WHERE story_id = ? GROUP BY reaction_type`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts types.StoryReactions
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		switch kind {
		case types.ReactionLike:
			counts.Likes = count
		case types.ReactionDislike:
			counts.Dislikes = count
		case types.ReactionLove:
			counts.Loves = count
		}
	}
	return &counts, rows.Err()
}

func (m *Manager) InsertStoryComment(ctx context.Context, storyID, userID int64, comment string) (*types.StoryComment, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO story_comments (story_id, user_id, comment) VALUES (?, ?, ?)`,
			storyID, userID, comment)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	row := m.db.QueryRowContext(ctx, `
		SELECT sc.id, sc.story_id, sc.user_id, sc.comment, sc.timestamp,
		       u.display_name, u.profile_image, u.rank
		FROM story_comments sc
		LEFT JOIN users u ON sc.user_id = u.id
		WHERE sc.id = ?`, id)
	return scanStoryComment(row)
}

func scanStoryComment(row interface{ Scan(...any) error }) (*types.StoryComment, error) {
	var c types.StoryComment
	var displayName, profileImage sql.NullString
	var rank sql.NullInt64
	err := row.Scan(&c.ID, &c.StoryID, &c.UserID, &c.Comment, &c.Timestamp,
		&displayName, &profileImage, &rank)
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	c.DisplayName = displayName.String
	if profileImage.Valid {
		c.ProfileImage = &profileImage.String
	}
	c.Rank = int(rank.Int64)
	return &c, nil
}

func (m *Manager) ListStoryComments(ctx context.Context, storyID int64) ([]*types.StoryComment, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT sc.id, sc.story_id, sc.user_id, sc.comment, sc.timestamp,
		       u.display_name, u.profile_image, u.rank
		FROM story_comments sc
		LEFT JOIN users u ON sc.user_id = u.id
		WHERE sc.story_id = ?
		ORDER BY sc.timestamp ASC`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.StoryComment
	for rows.Next() {
		c, err := scanStoryComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ---- notifications ----

func (m *Manager) InsertNotification(ctx context.Context, n *types.Notification) (int64, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO notifications (user_id, title, message, type) VALUES (?, ?, ?, ?)`,
			n.UserID, n.Title, n.Message, n.Type)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// InsertNotificationForAll writes one notification row per non-banned user
// and returns how many were written.
func (m *Manager) InsertNotificationForAll(ctx context.Context, title, message, ntype string) (int, error) {
	var count int
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO notifications (user_id, title, message, type)
			SELECT id, ?, ?, ? FROM users WHERE is_banned = 0`,
			title, message, ntype)
		if err != nil {
			return fmt.Errorf("failed to insert notifications: %w", err)
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (m *Manager) ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]*types.Notification, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, is_read, timestamp
		FROM notifications
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []*types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}
