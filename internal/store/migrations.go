package store

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source       TEXT NOT NULL,
    forum        TEXT NOT NULL DEFAULT '',
    item_id      TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    replies      INTEGER NOT NULL DEFAULT 0,
    upvotes      INTEGER NOT NULL DEFAULT 0,
    views        INTEGER NOT NULL DEFAULT 0,
    timestamp    DATETIME NOT NULL,
    collected_at DATETIME NOT NULL,
    UNIQUE(source, item_id)
);

CREATE INDEX IF NOT EXISTS idx_events_partition ON events(source, forum, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);

CREATE TABLE IF NOT EXISTS scans (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at     DATETIME NOT NULL,
    finished_at    DATETIME NOT NULL,
    event_count    INTEGER NOT NULL DEFAULT 0,
    cluster_count  INTEGER NOT NULL DEFAULT 0,
    recommendation TEXT NOT NULL DEFAULT '',
    risk           TEXT NOT NULL DEFAULT '{}',
    diagnostics    TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

CREATE TABLE IF NOT EXISTS clusters (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id         INTEGER NOT NULL REFERENCES scans(id),
    theme           TEXT NOT NULL,
    window_start    DATETIME NOT NULL,
    window_end      DATETIME NOT NULL,
    event_count     INTEGER NOT NULL DEFAULT 0,
    platform_count  INTEGER NOT NULL DEFAULT 0,
    aggregate_score REAL NOT NULL DEFAULT 0,
    platforms       TEXT NOT NULL DEFAULT '{}',
    alerted         BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_clusters_scan ON clusters(scan_id);
CREATE INDEX IF NOT EXISTS idx_clusters_score ON clusters(aggregate_score);

CREATE TABLE IF NOT EXISTS analyses (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id         INTEGER NOT NULL REFERENCES clusters(id),
    pump_probability   INTEGER NOT NULL DEFAULT 0,
    pump_type          TEXT NOT NULL DEFAULT '',
    coordination_score INTEGER NOT NULL DEFAULT 0,
    payload            TEXT NOT NULL DEFAULT '{}',
    created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_cluster ON analyses(cluster_id);
`
