package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"chemtutor/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// SchemaStore is implemented by every persistent vector store.
type SchemaStore interface {
	GetSchemaInfo() (*SchemaInfo, error)
	SetSchemaInfo(info *SchemaInfo) error
	Clear() error
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltVectorStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keySchemaVersion); v != nil {
			if err := json.Unmarshal(v, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if v := b.Get(keyConfigHash); v != nil {
			info.ConfigHash = string(v)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltVectorStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		MinWords       int    `json:"min_words"`
		TargetMinWords int    `json:"target_min_words"`
		TargetMaxWords int    `json:"target_max_words"`
		MaxWords       int    `json:"max_words"`
		EmbProvider    string `json:"emb_provider"`
		EmbModel       string `json:"emb_model"`
		EmbDimension   int    `json:"emb_dimension"`
	}{
		MinWords:       cfg.Chunking.MinWords,
		TargetMinWords: cfg.Chunking.TargetMinWords,
		TargetMaxWords: cfg.Chunking.TargetMaxWords,
		MaxWords:       cfg.Chunking.MaxWords,
		EmbProvider:    cfg.Embedding.Provider,
		EmbModel:       cfg.Embedding.Model,
		EmbDimension:   cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration checks if migration or rebuild is needed.
func CheckMigration(s SchemaStore, cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		result.NeedsRebuild = true
		result.Reason = "embedding or chunking configuration changed"
	}

	return result, nil
}

// Prepare brings a store up to date before ingestion: it clears the store
// when a rebuild is needed and records the current schema and config hash.
// The returned result says what was done.
func Prepare(s SchemaStore, cfg *config.Config) (*MigrationResult, error) {
	result, err := CheckMigration(s, cfg)
	if err != nil {
		return nil, err
	}
	if result.NeedsRebuild {
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear store for rebuild: %w", err)
		}
	}
	err = s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
