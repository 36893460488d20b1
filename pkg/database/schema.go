package database

// PostgresSchema creates the tables used by the Postgres store. The layout
// mirrors the hosted project's tables so rows move between the two unchanged.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ideas (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL,
	title TEXT NOT NULL CHECK (title <> ''),
	description TEXT,
	content TEXT,
	status TEXT NOT NULL DEFAULT 'draft',
	priority TEXT NOT NULL DEFAULT 'medium',
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	content_type TEXT,
	tags TEXT[],
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_ideas_user_created ON ideas(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS content_items (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL,
	idea_id UUID REFERENCES ideas(id) ON DELETE SET NULL,
	title TEXT NOT NULL,
	description TEXT,
	content TEXT,
	content_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	tags TEXT[],
	scheduled_date TIMESTAMPTZ,
	published_date TIMESTAMPTZ,
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_content_items_user_scheduled ON content_items(user_id, scheduled_date);

CREATE TABLE IF NOT EXISTS swipe_files (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	url TEXT,
	content TEXT,
	image_url TEXT,
	source TEXT,
	tags TEXT[],
	favorite BOOLEAN NOT NULL DEFAULT FALSE,
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_swipe_files_user_created ON swipe_files(user_id, created_at DESC);
`

// PostgresTables lists the tables created by PostgresSchema.
var PostgresTables = []string{"users", "profiles", "ideas", "content_items", "swipe_files"}

// sqliteSchema is the local-file equivalent; tags are stored as JSON text.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS ideas (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL CHECK (title <> ''),
	description TEXT,
	content TEXT,
	status TEXT NOT NULL DEFAULT 'draft',
	priority TEXT NOT NULL DEFAULT 'medium',
	is_favorite INTEGER NOT NULL DEFAULT 0,
	content_type TEXT,
	tags TEXT NOT NULL DEFAULT '[]',
	notes TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_ideas_user_created ON ideas(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS content_items (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	idea_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	content TEXT,
	content_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	tags TEXT NOT NULL DEFAULT '[]',
	scheduled_date DATETIME,
	published_date DATETIME,
	archived INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS swipe_files (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	url TEXT,
	content TEXT,
	image_url TEXT,
	source TEXT,
	tags TEXT NOT NULL DEFAULT '[]',
	favorite INTEGER NOT NULL DEFAULT 0,
	archived INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);
`
