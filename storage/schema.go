package storage

// Schema holds the DDL for all historypg tables. EnsureSchema executes it;
// it is exported so migration tooling can apply it instead.
const Schema = `
CREATE TABLE IF NOT EXISTS historypg_sessions (
	id UUID PRIMARY KEY,
	identifier TEXT NOT NULL,
	metadata JSONB,
	process_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_historypg_sessions_identifier
	ON historypg_sessions (identifier);

CREATE TABLE IF NOT EXISTS historypg_messages (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES historypg_sessions (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	kind TEXT NOT NULL,
	parts JSONB NOT NULL DEFAULT '[]',
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (session_id, position)
);
CREATE INDEX IF NOT EXISTS idx_historypg_messages_session
	ON historypg_messages (session_id, position);

CREATE TABLE IF NOT EXISTS historypg_process_events (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES historypg_sessions (id) ON DELETE CASCADE,
	retry_prompts_dropped INTEGER NOT NULL DEFAULT 0,
	tool_calls_dropped INTEGER NOT NULL DEFAULT 0,
	messages_dropped INTEGER NOT NULL DEFAULT 0,
	parts_edited JSONB,
	parts_dropped JSONB,
	original_messages INTEGER NOT NULL DEFAULT 0,
	final_messages INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_historypg_process_events_session
	ON historypg_process_events (session_id, created_at);

CREATE TABLE IF NOT EXISTS historypg_message_archive (
	id UUID PRIMARY KEY,
	process_event_id UUID NOT NULL,
	session_id UUID NOT NULL,
	original_message JSONB NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_historypg_message_archive_session
	ON historypg_message_archive (session_id);
`
