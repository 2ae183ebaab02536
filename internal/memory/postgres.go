package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PostgresStore persists per-user memory in PostgreSQL. It is an
// optional backend for deployments that already run a database; the
// file store remains the default.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_user_created
			ON conversation_messages (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS summary_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			summary TEXT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_summary_records_user_created
			ON summary_records (user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) LoadUserMemory(ctx context.Context, userID string) (UserMemory, error) {
	if err := validateUserID(userID); err != nil {
		return UserMemory{}, err
	}

	mem := UserMemory{
		UserID:        userID,
		Conversations: []Message{},
		Summaries:     []SummaryRecord{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM conversation_messages
		 WHERE user_id=$1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return UserMemory{}, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return UserMemory{}, fmt.Errorf("scan conversation row: %w", err)
		}
		mem.Conversations = append(mem.Conversations, m)
	}
	if err := rows.Err(); err != nil {
		return UserMemory{}, fmt.Errorf("iterate conversation rows: %w", err)
	}

	sumRows, err := s.pool.Query(ctx,
		`SELECT id, kind, summary, metadata, created_at FROM summary_records
		 WHERE user_id=$1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return UserMemory{}, fmt.Errorf("query summaries: %w", err)
	}
	defer sumRows.Close()
	for sumRows.Next() {
		var r SummaryRecord
		if err := sumRows.Scan(&r.ID, &r.Type, &r.Summary, &r.Metadata, &r.Timestamp); err != nil {
			return UserMemory{}, fmt.Errorf("scan summary row: %w", err)
		}
		mem.Summaries = append(mem.Summaries, r)
	}
	if err := sumRows.Err(); err != nil {
		return UserMemory{}, fmt.Errorf("iterate summary rows: %w", err)
	}

	return mem, nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, userID string, role Role, content string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_messages (id, user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(),
		userID,
		string(role),
		content,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	// Evict oldest messages beyond the conversation cap.
	_, err = s.pool.Exec(ctx,
		`DELETE FROM conversation_messages
		 WHERE user_id=$1 AND id NOT IN (
			SELECT id FROM conversation_messages
			WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
		 )`,
		userID,
		MaxConversationLength,
	)
	if err != nil {
		return fmt.Errorf("trim conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddSummary(ctx context.Context, userID string, kind SummaryType, summary string, metadata map[string]string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}

	id := "sum_" + gonanoid.Must()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summary_records (id, user_id, kind, summary, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id,
		userID,
		string(kind),
		summary,
		metadata,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert summary: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetRecentConversation(ctx context.Context, userID string, limit int) ([]Message, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	// A non-positive limit means the whole history, same as the file
	// backend. LIMIT NULL is unbounded in postgres.
	var rowCap any
	if limit > 0 {
		rowCap = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM conversation_messages
		 WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		rowCap,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent conversation: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0, MaxConversationLength)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
