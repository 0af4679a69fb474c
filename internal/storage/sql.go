package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"betai/internal/models"
)

// SQLStore implements Store on sqlite3, mysql or postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: normalizeDriver(driver)}
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) upsert(table, conflict string, cols []string, updates []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	sets := make([]string, len(updates))
	if s.driver == "mysql" {
		for i, c := range updates {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range updates {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return insert + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET ", conflict) + strings.Join(sets, ", ")
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) error {
	if err := validUserID(user.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, strings.ToLower(email))
}

func (s *SQLStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLStore) queryUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		user    models.User
		created string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &user, nil
}

func (s *SQLStore) ListChats(ctx context.Context, userID, sport string) (map[string][]models.Chat, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	query := `SELECT sport, id, title, messages, created_at, updated_at FROM chats WHERE user_id = ?`
	args := []interface{}{userID}
	if sport != "" {
		query += ` AND sport = ?`
		args = append(args, sport)
	}
	query += ` ORDER BY sport, position`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Chat)
	if sport != "" {
		out[sport] = []models.Chat{}
	}
	for rows.Next() {
		var (
			bucket, messages, updated string
			chat                      models.Chat
		)
		if err := rows.Scan(&bucket, &chat.ID, &chat.Title, &messages, &chat.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if err := json.Unmarshal([]byte(messages), &chat.Messages); err != nil {
			return nil, fmt.Errorf("decode chat %s messages: %w", chat.ID, err)
		}
		chat.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out[bucket] = append(out[bucket], chat)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveChat(ctx context.Context, userID, sport string, chat models.Chat) error {
	if err := validUserID(userID); err != nil {
		return err
	}
	messages, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("encode chat messages: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var position int64
	if err := tx.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(position), 0) + 1 FROM chats WHERE user_id = ? AND sport = ?`),
		userID, sport,
	).Scan(&position); err != nil {
		return fmt.Errorf("next chat position: %w", err)
	}

	var existingCreated string
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT created_at FROM chats WHERE user_id = ? AND sport = ? AND id = ?`),
		userID, sport, chat.ID,
	).Scan(&existingCreated)
	switch {
	case err == nil:
		if chat.CreatedAt == "" {
			chat.CreatedAt = existingCreated
		}
		_, err = tx.ExecContext(ctx,
			s.rebind(`UPDATE chats SET title = ?, messages = ?, created_at = ?, updated_at = ? WHERE user_id = ? AND sport = ? AND id = ?`),
			chat.Title, string(messages), chat.CreatedAt, chat.UpdatedAt.UTC().Format(time.RFC3339Nano), userID, sport, chat.ID,
		)
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO chats (user_id, sport, id, title, messages, created_at, updated_at, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			userID, sport, chat.ID, chat.Title, string(messages), chat.CreatedAt, chat.UpdatedAt.UTC().Format(time.RFC3339Nano), position,
		)
	}
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) DeleteChat(ctx context.Context, userID, sport, chatID string) error {
	if err := validUserID(userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM chats WHERE user_id = ? AND sport = ? AND id = ?`),
		userID, sport, chatID,
	)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	if err := validUserID(userID); err != nil {
		return models.Preferences{}, err
	}
	return s.loadPreferences(ctx, s.db, userID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) loadPreferences(ctx context.Context, q queryRower, userID string) (models.Preferences, error) {
	var (
		prefs models.Preferences
		data  string
	)
	err := q.QueryRowContext(ctx, s.rebind(`SELECT data FROM preferences WHERE user_id = ?`), userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return prefs, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (s *SQLStore) UpdatePreferences(ctx context.Context, userID string, fn func(*models.Preferences) bool) (models.Preferences, error) {
	if err := validUserID(userID); err != nil {
		return models.Preferences{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Preferences{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	prefs, err := s.loadPreferences(ctx, tx, userID)
	if err != nil {
		return prefs, err
	}
	if !fn(&prefs) {
		return prefs, nil
	}
	prefs.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(prefs)
	if err != nil {
		return prefs, fmt.Errorf("encode preferences: %w", err)
	}
	query := s.upsert("preferences", "user_id", []string{"user_id", "data", "updated_at"}, []string{"data", "updated_at"})
	if _, err := tx.ExecContext(ctx, s.rebind(query), userID, string(data), prefs.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
		return prefs, fmt.Errorf("save preferences: %w", err)
	}
	return prefs, tx.Commit()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
