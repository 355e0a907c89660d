package journal

const schema = `
-- One row per converted input (file, stdin, or mbox message)
CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    digest TEXT,             -- SHA-256 of the raw input
    subject TEXT,            -- decoded Subject header
    part_count INTEGER DEFAULT 0,
    attachment_count INTEGER DEFAULT 0,
    file_size INTEGER,
    status TEXT NOT NULL,    -- converted, failed, skipped
    error TEXT,
    converted_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Full-text search over subjects and paths
CREATE VIRTUAL TABLE IF NOT EXISTS conversions_fts USING fts5(
    subject,
    file_path,
    content='conversions',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS conversions_ai AFTER INSERT ON conversions BEGIN
    INSERT INTO conversions_fts(rowid, subject, file_path)
    VALUES (new.id, new.subject, new.file_path);
END;

CREATE TRIGGER IF NOT EXISTS conversions_ad AFTER DELETE ON conversions BEGIN
    INSERT INTO conversions_fts(conversions_fts, rowid, subject, file_path)
    VALUES ('delete', old.id, old.subject, old.file_path);
END;

CREATE INDEX IF NOT EXISTS idx_conversions_path_digest ON conversions(file_path, digest);
CREATE INDEX IF NOT EXISTS idx_conversions_run ON conversions(run_id);
CREATE INDEX IF NOT EXISTS idx_conversions_converted_at ON conversions(converted_at DESC);
`
