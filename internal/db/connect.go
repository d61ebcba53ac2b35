package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:autograde.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/autograde?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; transactions must not be interleaved with pool reads
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS problems (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  rating REAL NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  attempts_allowed INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  question_type TEXT NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  points REAL NOT NULL DEFAULT 0,
  order_index INTEGER NOT NULL DEFAULT 0,
  config_json TEXT NOT NULL DEFAULT 'null',
  PRIMARY KEY (problem_id, id)
);

CREATE TABLE IF NOT EXISTS problem_types (
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  type_id TEXT NOT NULL,
  PRIMARY KEY (problem_id, type_id)
);

CREATE TABLE IF NOT EXISTS course_problems (
  course_id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  PRIMARY KEY (course_id, problem_id)
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  max_score REAL NOT NULL DEFAULT 0,
  score_percentage REAL NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  submitted_at INTEGER,
  graded_at INTEGER,
  time_spent INTEGER NOT NULL DEFAULT 0,
  auto_graded INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, problem_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS question_answers (
  id TEXT PRIMARY KEY,
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  answer_json TEXT NOT NULL DEFAULT 'null',
  is_correct INTEGER NOT NULL DEFAULT 0,
  points_earned REAL NOT NULL DEFAULT 0,
  points_possible REAL NOT NULL DEFAULT 0,
  feedback TEXT,
  details_json TEXT NOT NULL DEFAULT 'null',
  answered_at INTEGER NOT NULL,
  UNIQUE (submission_id, question_id)
);

CREATE TABLE IF NOT EXISTS user_ratings (
  user_id TEXT PRIMARY KEY,
  rating REAL NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS type_ratings (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  type_id TEXT NOT NULL,
  rating REAL NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, course_id, type_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                     -- e.g. SubmissionGraded
  key TEXT NOT NULL,                     -- natural key: submission id
  data TEXT NOT NULL,                    -- JSON payload
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_course ON submissions (course_id, user_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS problems (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  attempts_allowed INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  question_type TEXT NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  points DOUBLE PRECISION NOT NULL DEFAULT 0,
  order_index INTEGER NOT NULL DEFAULT 0,
  config_json TEXT NOT NULL DEFAULT 'null',
  PRIMARY KEY (problem_id, id)
);

CREATE TABLE IF NOT EXISTS problem_types (
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  type_id TEXT NOT NULL,
  PRIMARY KEY (problem_id, type_id)
);

CREATE TABLE IF NOT EXISTS course_problems (
  course_id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  PRIMARY KEY (course_id, problem_id)
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  score_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  started_at BIGINT NOT NULL,
  submitted_at BIGINT,
  graded_at BIGINT,
  time_spent BIGINT NOT NULL DEFAULT 0,
  auto_graded INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, problem_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS question_answers (
  id TEXT PRIMARY KEY,
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  answer_json TEXT NOT NULL DEFAULT 'null',
  is_correct INTEGER NOT NULL DEFAULT 0,
  points_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
  points_possible DOUBLE PRECISION NOT NULL DEFAULT 0,
  feedback TEXT,
  details_json TEXT NOT NULL DEFAULT 'null',
  answered_at BIGINT NOT NULL,
  UNIQUE (submission_id, question_id)
);

CREATE TABLE IF NOT EXISTS user_ratings (
  user_id TEXT PRIMARY KEY,
  rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS type_ratings (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  type_id TEXT NOT NULL,
  rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
  submission_count INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, course_id, type_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_course ON submissions (course_id, user_id);
`
