package db

const schema = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS libraries (
    id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name          TEXT NOT NULL,
    root_path     TEXT NOT NULL UNIQUE,
    media_type    TEXT NOT NULL DEFAULT 'mixed',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    watch_folder  BOOLEAN NOT NULL DEFAULT FALSE,
    scan_interval INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_scanned  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS media_records (
    id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    external_id   TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL DEFAULT '',
    title         TEXT NOT NULL,
    year          INTEGER,
    media_type    TEXT NOT NULL DEFAULT 'movie',
    poster_url    TEXT NOT NULL DEFAULT '',
    total_seasons INTEGER,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS scanned_files (
    id                UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    library_id        UUID NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
    scan_id           TEXT NOT NULL DEFAULT '',
    path              TEXT NOT NULL,
    name              TEXT NOT NULL,
    extension         TEXT NOT NULL DEFAULT '',
    media_type        TEXT NOT NULL DEFAULT 'unknown',
    size              BIGINT NOT NULL DEFAULT 0,
    modified_time     TIMESTAMPTZ,
    created_time      TIMESTAMPTZ,
    checksum          TEXT NOT NULL DEFAULT '',
    parsed_title      TEXT NOT NULL DEFAULT '',
    parsed_year       INTEGER,
    parsed_season     INTEGER,
    parsed_episode    INTEGER,
    assignment_status TEXT NOT NULL DEFAULT 'unassigned',
    match_status      TEXT NOT NULL DEFAULT 'unmatched',
    match_confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
    media_id          UUID REFERENCES media_records(id) ON DELETE SET NULL,
    season_number     INTEGER,
    episode_number    INTEGER,
    discovered_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (library_id, path)
);

CREATE TABLE IF NOT EXISTS scanned_directories (
    id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    library_id    UUID NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
    scan_id       TEXT NOT NULL DEFAULT '',
    path          TEXT NOT NULL,
    name          TEXT NOT NULL,
    modified_time TIMESTAMPTZ,
    discovered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (library_id, path)
);

CREATE TABLE IF NOT EXISTS scans (
    id          TEXT PRIMARY KEY,
    library_id  UUID NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
    status      TEXT NOT NULL DEFAULT 'queued',
    total_files INTEGER NOT NULL DEFAULT 0,
    total_dirs  INTEGER NOT NULL DEFAULT 0,
    new_files   INTEGER NOT NULL DEFAULT 0,
    duplicates  INTEGER NOT NULL DEFAULT 0,
    errors      JSONB NOT NULL DEFAULT '[]',
    started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scanned_files_library ON scanned_files(library_id);
CREATE INDEX IF NOT EXISTS idx_scanned_files_assignment ON scanned_files(assignment_status);
CREATE INDEX IF NOT EXISTS idx_scanned_files_match ON scanned_files(match_status);
CREATE INDEX IF NOT EXISTS idx_scans_library ON scans(library_id);
`
