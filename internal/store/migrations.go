package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users, agents and chat messages",
		SQL: `
			CREATE TABLE users (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				username  TEXT NOT NULL UNIQUE,
				password  TEXT NOT NULL
			);

			CREATE TABLE agents (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				name           TEXT NOT NULL,
				base_model     TEXT NOT NULL,
				system_prompt  TEXT NOT NULL DEFAULT '',
				plugins        TEXT NOT NULL DEFAULT '[]',
				user_id        INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE chat_messages (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				agent_id       INTEGER NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				role           TEXT NOT NULL,
				content        TEXT NOT NULL,
				mcp_data_used  INTEGER NOT NULL DEFAULT 0,
				timestamp      TEXT NOT NULL
			);

			CREATE INDEX idx_chat_messages_agent ON chat_messages (agent_id, timestamp, id);
		`,
	},
}
