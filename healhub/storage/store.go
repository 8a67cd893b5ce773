// Package storage implements the conversation store on embedded libsql with
// goose-managed schema migrations.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists conversations and turns in libsql.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New runs pending migrations and returns a ready store.
func New(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

func migrate(db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectTurso, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateConversation inserts a new conversation for the user.
func (s *Store) CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*inferenceports.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}
	now := time.Now().UTC()
	conv := &inferenceports.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, is_archived, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		conv.ID.String(), conv.UserID.String(), conv.Title, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.logger.Debug().Str("conversation_id", conv.ID.String()).Msg("Conversation created")
	return conv, nil
}

// GetConversation fetches a conversation owned by userID. A conversation
// belonging to another user is indistinguishable from a missing one.
func (s *Store) GetConversation(ctx context.Context, conversationID, userID uuid.UUID) (*inferenceports.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, is_archived, created_at, updated_at
		 FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID.String(), userID.String())
	return scanConversation(row)
}

// ListConversations returns the user's conversations, most recently updated
// first.
func (s *Store) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]inferenceports.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, is_archived, created_at, updated_at
		 FROM conversations WHERE user_id = ?
		 ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		userID.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []inferenceports.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *conv)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and, via cascade, its turns.
func (s *Store) DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inferenceports.ErrConversationNotFound
	}
	return nil
}

// FetchHistory returns every turn of the conversation in insertion order.
func (s *Store) FetchHistory(ctx context.Context, conversationID uuid.UUID) ([]inferenceports.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, sentiment_score, risk_score, emotions, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// PersistTurn appends a turn. The turn's ID and CreatedAt are assigned if
// unset.
func (s *Store) PersistTurn(ctx context.Context, turn *inferenceports.Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	var emotions any
	if turn.Emotions != nil {
		data, err := json.Marshal(turn.Emotions)
		if err != nil {
			return fmt.Errorf("failed to encode emotions: %w", err)
		}
		emotions = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, sentiment_score, risk_score, emotions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID.String(), turn.ConversationID.String(), string(turn.Role), turn.Content,
		turn.SentimentScore, turn.RiskScore, emotions, turn.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to persist turn: %w", err)
	}
	return nil
}

// TouchConversation bumps the conversation's updated_at timestamp.
func (s *Store) TouchConversation(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		at.Unix(), conversationID.String())
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// ListUserTurnsSince returns the user's own turns across all conversations,
// newest first.
func (s *Store) ListUserTurnsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]inferenceports.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.role, m.content, m.sentiment_score, m.risk_score, m.emotions, m.created_at
		 FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.user_id = ? AND m.role = 'user' AND m.created_at >= ?
		 ORDER BY m.seq DESC`,
		userID.String(), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list user turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*inferenceports.Conversation, error) {
	var (
		id, userID, title    string
		archived             int
		createdAt, updatedAt int64
	)
	err := row.Scan(&id, &userID, &title, &archived, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, inferenceports.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	convID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt conversation id %q: %w", id, err)
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", userID, err)
	}

	return &inferenceports.Conversation{
		ID:         convID,
		UserID:     ownerID,
		Title:      title,
		IsArchived: archived != 0,
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
		UpdatedAt:  time.Unix(updatedAt, 0).UTC(),
	}, nil
}

func scanTurns(rows *sql.Rows) ([]inferenceports.Turn, error) {
	var out []inferenceports.Turn
	for rows.Next() {
		var (
			id, convID, role, content string
			sentiment, risk           sql.NullFloat64
			emotions                  sql.NullString
			createdAt                 int64
		)
		if err := rows.Scan(&id, &convID, &role, &content, &sentiment, &risk, &emotions, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn := inferenceports.Turn{
			Role:      inferenceports.Role(role),
			Content:   content,
			CreatedAt: time.Unix(createdAt, 0).UTC(),
		}
		var err error
		if turn.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt turn id %q: %w", id, err)
		}
		if turn.ConversationID, err = uuid.Parse(convID); err != nil {
			return nil, fmt.Errorf("corrupt conversation id %q: %w", convID, err)
		}
		if sentiment.Valid {
			v := sentiment.Float64
			turn.SentimentScore = &v
		}
		if risk.Valid {
			v := risk.Float64
			turn.RiskScore = &v
		}
		if emotions.Valid && emotions.String != "" {
			if err := json.Unmarshal([]byte(emotions.String), &turn.Emotions); err != nil {
				return nil, fmt.Errorf("corrupt emotions payload: %w", err)
			}
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

var _ inferenceports.ConversationStore = (*Store)(nil)
