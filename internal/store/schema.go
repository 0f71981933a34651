package store

// Schema versions:
// v1: items, versions, tags stored as JSON column.
// v2: parts table for analyzer decomposition.
// v3: edges table for graph relations.
// v4: pending_tasks table for the deferred work queue.
// v5: items_fts FTS5 index over item summary + content.
const CurrentSchemaVersion = 5

const schemaItems = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT NOT NULL,
	collection TEXT NOT NULL,
	summary TEXT NOT NULL,
	tags_json TEXT NOT NULL DEFAULT '{}',
	content TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	content_hash_full TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	accessed_at DATETIME NOT NULL,
	PRIMARY KEY (id, collection)
);
CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection);
CREATE INDEX IF NOT EXISTS idx_items_updated ON items(updated_at);
CREATE INDEX IF NOT EXISTS idx_items_content_hash ON items(content_hash);
`

const schemaVersions = `
CREATE TABLE IF NOT EXISTS versions (
	id TEXT NOT NULL,
	collection TEXT NOT NULL,
	version INTEGER NOT NULL,
	summary TEXT NOT NULL,
	tags_json TEXT NOT NULL DEFAULT '{}',
	content TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (id, collection, version)
);
CREATE INDEX IF NOT EXISTS idx_versions_item ON versions(id, collection);
`

const schemaParts = `
CREATE TABLE IF NOT EXISTS parts (
	id TEXT NOT NULL,
	collection TEXT NOT NULL,
	part_num INTEGER NOT NULL,
	summary TEXT NOT NULL,
	content TEXT NOT NULL,
	tags_json TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (id, collection, part_num)
);
CREATE INDEX IF NOT EXISTS idx_parts_item ON parts(id, collection);
`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
	collection TEXT NOT NULL,
	source_id TEXT NOT NULL,
	predicate TEXT NOT NULL,
	target_id TEXT NOT NULL,
	inverse TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (collection, source_id, predicate, target_id)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(collection, source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(collection, target_id);
`

const schemaPendingTasks = `
CREATE TABLE IF NOT EXISTS pending_tasks (
	id TEXT NOT NULL,
	collection TEXT NOT NULL,
	task_type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	queued_at DATETIME NOT NULL,
	dequeued_at DATETIME,
	PRIMARY KEY (id, collection, task_type)
);
CREATE INDEX IF NOT EXISTS idx_pending_queued ON pending_tasks(queued_at);
CREATE INDEX IF NOT EXISTS idx_pending_dequeued ON pending_tasks(dequeued_at);
`

// schemaFTS is a standalone FTS5 table: each item's summary and content are
// copied into its body column by indexFTS and removed by removeFTS (there
// are no triggers), so the indexed text is stored a second time here.
const schemaFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
	id UNINDEXED,
	collection UNINDEXED,
	body,
	tokenize = 'porter unicode61'
);
`

var baseTables = []string{
	schemaItems,
	schemaVersions,
	schemaParts,
	schemaEdges,
	schemaPendingTasks,
}
