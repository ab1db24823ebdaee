package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"chemtutor/internal/adapter/store/rank"
	"chemtutor/internal/port"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id       TEXT PRIMARY KEY,
	seq      INTEGER NOT NULL,
	text     TEXT NOT NULL,
	metadata TEXT NOT NULL,
	vector   BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

var metaKeyPattern = regexp.MustCompile(`^[a-z_]+$`)

// SQLiteVectorStore keeps chunks in a single SQLite table. Metadata filters
// run in SQL; similarity is computed over the filtered rows.
type SQLiteVectorStore struct {
	db        *sql.DB
	dimension int
}

func OpenSQLiteVectorStore(path string, dimension int) (*SQLiteVectorStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteVectorStore{db: db, dimension: dimension}, nil
}

func (s *SQLiteVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	for _, item := range items {
		if s.dimension > 0 && len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, seq, text, metadata, vector)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chunks), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		meta, err := json.Marshal(item.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, item.ID, item.Text, string(meta), serializeVector(item.Vector)); err != nil {
			return fmt.Errorf("upserting %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteVectorStore) Query(ctx context.Context, vec []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	if s.dimension > 0 && len(vec) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vec))
	}

	where, args, err := filterClause(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, seq, text, metadata, vector FROM chunks"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var cands []rank.Candidate
	for rows.Next() {
		var (
			c    rank.Candidate
			meta string
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Seq, &c.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", c.ID, err)
		}
		c.Score = rank.Cosine(vec, deserializeVector(blob))
		cands = append(cands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rank.Rank(cands, k), nil
}

// filterClause turns an exact-match filter into a WHERE clause over the
// JSON metadata column. Keys are sorted so the SQL is stable.
func filterClause(filter map[string]string) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !metaKeyPattern.MatchString(k) {
			return "", nil, fmt.Errorf("invalid filter key %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		conds[i] = "json_extract(metadata, ?) = ?"
		args = append(args, "$."+k, filter[k])
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *SQLiteVectorStore) Stats(ctx context.Context) (port.StoreStats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT metadata FROM chunks")
	if err != nil {
		return port.StoreStats{}, fmt.Errorf("reading metadata: %w", err)
	}
	defer rows.Close()

	var metas []map[string]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return port.StoreStats{}, err
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return port.StoreStats{}, err
	}
	return rank.Summarize(metas), nil
}

func (s *SQLiteVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func (s *SQLiteVectorStore) GetSchemaInfo() (*SchemaInfo, error) {
	info := &SchemaInfo{}
	rows, err := s.db.Query("SELECT key, value FROM meta WHERE key IN (?, ?)", string(keySchemaVersion), string(keyConfigHash))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		switch k {
		case string(keySchemaVersion):
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("corrupt schema version %q", v)
			}
			info.Version = n
		case string(keyConfigHash):
			info.ConfigHash = v
		}
	}
	return info, rows.Err()
}

func (s *SQLiteVectorStore) SetSchemaInfo(info *SchemaInfo) error {
	const upsert = "INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := s.db.Exec(upsert, string(keySchemaVersion), strconv.Itoa(info.Version)); err != nil {
		return err
	}
	_, err := s.db.Exec(upsert, string(keyConfigHash), info.ConfigHash)
	return err
}

func (s *SQLiteVectorStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM chunks")
	return err
}

func (s *SQLiteVectorStore) Close() error {
	return s.db.Close()
}

func serializeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
