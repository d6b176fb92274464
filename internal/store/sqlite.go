package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/logging"
)

// DB is the SQLite-backed Store.
type DB struct {
	sql *sql.DB
	log *logging.Logger
}

// OpenSQLite opens (or creates) a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for tests).
func OpenSQLite(path string, log *logging.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}

	// WAL mode for better concurrent read performance
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{sql: sqlDB, log: log.Sub("store")}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db.log.Info().Str("path", path).Msg("database opened")
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.log.Info().Msg("closing database")
	return db.sql.Close()
}

// migrate runs all pending migrations.
func (db *DB) migrate() error {
	if _, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.isMigrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (db *DB) isMigrationApplied(version int) (bool, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}

// --- Users ---

func (db *DB) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return db.scanUser(db.sql.QueryRowContext(ctx,
		"SELECT id, username, password FROM users WHERE id = ?", id), id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return db.scanUser(db.sql.QueryRowContext(ctx,
		"SELECT id, username, password FROM users WHERE username = ?", username), username)
}

func (db *DB) scanUser(row *sql.Row, key any) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, notFound("user", key)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (db *DB) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := validateUser(u); err != nil {
		return domain.User{}, err
	}
	res, err := db.sql.ExecContext(ctx, "INSERT INTO users (username, password) VALUES (?, ?)", u.Username, u.Password)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.User{}, domain.Errorf(domain.KindInvalidInput, "store.createUser", "username %q is taken", u.Username)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// --- Agents ---

const agentColumns = "id, name, base_model, system_prompt, plugins, user_id"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (domain.StoredAgent, error) {
	var (
		a       domain.StoredAgent
		plugins string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.BaseModel, &a.SystemPrompt, &plugins, &a.UserID); err != nil {
		return domain.StoredAgent{}, err
	}
	if err := json.Unmarshal([]byte(plugins), &a.Plugins); err != nil {
		return domain.StoredAgent{}, fmt.Errorf("agent %d plugins: %w", a.ID, err)
	}
	return a, nil
}

func (db *DB) GetAgent(ctx context.Context, id int64) (domain.StoredAgent, error) {
	a, err := scanAgent(db.sql.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredAgent{}, notFound("agent", id)
	}
	if err != nil {
		return domain.StoredAgent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (db *DB) ListAgents(ctx context.Context) ([]domain.StoredAgent, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT "+agentColumns+" FROM agents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []domain.StoredAgent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("list agents: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func encodePlugins(plugins []string) (string, error) {
	if plugins == nil {
		plugins = []string{}
	}
	b, err := json.Marshal(plugins)
	return string(b), err
}

func (db *DB) CreateAgent(ctx context.Context, a domain.StoredAgent) (domain.StoredAgent, error) {
	if err := validateAgent("store.createAgent", a); err != nil {
		return domain.StoredAgent{}, err
	}
	plugins, err := encodePlugins(a.Plugins)
	if err != nil {
		return domain.StoredAgent{}, fmt.Errorf("create agent: %w", err)
	}
	res, err := db.sql.ExecContext(ctx,
		"INSERT INTO agents (name, base_model, system_prompt, plugins, user_id) VALUES (?, ?, ?, ?, ?)",
		a.Name, a.BaseModel, a.SystemPrompt, plugins, a.UserID)
	if err != nil {
		return domain.StoredAgent{}, fmt.Errorf("create agent: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return domain.StoredAgent{}, fmt.Errorf("create agent: %w", err)
	}
	if a.Plugins == nil {
		a.Plugins = []string{}
	}
	return a, nil
}

func (db *DB) UpdateAgent(ctx context.Context, id int64, upd domain.AgentUpdate) (domain.StoredAgent, error) {
	current, err := db.GetAgent(ctx, id)
	if err != nil {
		return domain.StoredAgent{}, err
	}
	a := applyUpdate(current, upd)
	if err := validateAgent("store.updateAgent", a); err != nil {
		return domain.StoredAgent{}, err
	}
	plugins, err := encodePlugins(a.Plugins)
	if err != nil {
		return domain.StoredAgent{}, fmt.Errorf("update agent: %w", err)
	}
	_, err = db.sql.ExecContext(ctx,
		"UPDATE agents SET name = ?, base_model = ?, system_prompt = ?, plugins = ?, user_id = ? WHERE id = ?",
		a.Name, a.BaseModel, a.SystemPrompt, plugins, a.UserID, id)
	if err != nil {
		return domain.StoredAgent{}, fmt.Errorf("update agent: %w", err)
	}
	return a, nil
}

func (db *DB) DeleteAgent(ctx context.Context, id int64) (bool, error) {
	res, err := db.sql.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete agent: %w", err)
	}
	return n > 0, nil
}

// --- Chat messages ---

const messageColumns = "id, agent_id, role, content, mcp_data_used, timestamp"

func scanMessage(row rowScanner) (domain.ChatMessage, error) {
	var (
		m  domain.ChatMessage
		ts string
	)
	if err := row.Scan(&m.ID, &m.AgentID, &m.Role, &m.Content, &m.MCPDataUsed, &ts); err != nil {
		return domain.ChatMessage{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("message %d timestamp: %w", m.ID, err)
	}
	m.Timestamp = t
	return m, nil
}

func (db *DB) GetChatMessage(ctx context.Context, id int64) (domain.ChatMessage, error) {
	m, err := scanMessage(db.sql.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM chat_messages WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatMessage{}, notFound("chat message", id)
	}
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("get chat message: %w", err)
	}
	return m, nil
}

func (db *DB) ListChatMessagesByAgent(ctx context.Context, agentID int64) ([]domain.ChatMessage, error) {
	rows, err := db.sql.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE agent_id = ? ORDER BY timestamp ASC, id ASC", agentID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.ChatMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("list chat messages: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// timestampLayout sorts lexically in time order, unlike RFC3339Nano which trims zeros.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (db *DB) CreateChatMessage(ctx context.Context, m domain.ChatMessage) (domain.ChatMessage, error) {
	if err := validateMessage(m); err != nil {
		return domain.ChatMessage{}, err
	}
	if _, err := db.GetAgent(ctx, m.AgentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ChatMessage{}, domain.Errorf(domain.KindInvalidInput, "store.createChatMessage", "agent %d does not exist", m.AgentID)
		}
		return domain.ChatMessage{}, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC()

	res, err := db.sql.ExecContext(ctx,
		"INSERT INTO chat_messages (agent_id, role, content, mcp_data_used, timestamp) VALUES (?, ?, ?, ?, ?)",
		m.AgentID, m.Role, m.Content, m.MCPDataUsed, m.Timestamp.Format(timestampLayout))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("create chat message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("create chat message: %w", err)
	}
	return m, nil
}
