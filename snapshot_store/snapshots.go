package snapshot_store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/meysamhadeli/astview/hierarchy"
)

// SnapshotRecord is one entry of the snapshot log.
type SnapshotRecord struct {
	ID        int64           `json:"id" yaml:"id"`
	Key       string          `json:"key" yaml:"key"`
	Value     *hierarchy.Node `json:"value" yaml:"value"`
	Timestamp int64           `json:"timestamp" yaml:"timestamp"`
}

// Time converts the epoch-ms timestamp.
func (r SnapshotRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// PutCurrentText overwrites the current text slot.
func (s *Store) PutCurrentText(ctx context.Context, text string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return runTx(ctx, db, "put current text", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO current_code (k, v) VALUES (?, ?)
			 ON CONFLICT(k) DO UPDATE SET v = excluded.v`, currentKey, text)
		return err
	})
}

// GetCurrentText returns the saved working text, or the placeholder when none was saved.
// On a storage failure the placeholder comes back together with the error.
func (s *Store) GetCurrentText(ctx context.Context) (string, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return s.options.Placeholder, err
	}

	var text string
	err = db.QueryRowContext(ctx, `SELECT v FROM current_code WHERE k = ?`, currentKey).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return s.options.Placeholder, nil
	}
	if err != nil {
		return s.options.Placeholder, storageError("get current text", err)
	}
	return text, nil
}

// AppendSnapshot adds text and its hierarchy to the log and returns the new id.
func (s *Store) AppendSnapshot(ctx context.Context, text string, root *hierarchy.Node) (int64, error) {
	value, err := json.Marshal(root)
	if err != nil {
		return 0, storageError("append snapshot", fmt.Errorf("encode hierarchy: %w", err))
	}

	db, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = runTx(ctx, db, "append snapshot", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO history (key, value, timestamp) VALUES (?, ?, ?)`,
			text, string(value), s.now().UnixMilli())
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListSnapshots returns the whole log in insertion order.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, key, value, timestamp FROM history ORDER BY id`)
	if err != nil {
		return nil, storageError("list snapshots", err)
	}
	defer rows.Close()

	records := []SnapshotRecord{}
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, storageError("list snapshots", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list snapshots", err)
	}
	return records, nil
}

// GetSnapshot loads one record.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (SnapshotRecord, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return SnapshotRecord{}, err
	}

	row := db.QueryRowContext(ctx, `SELECT id, key, value, timestamp FROM history WHERE id = ?`, id)
	record, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, storageError("get snapshot", fmt.Errorf("id %d: %w", id, ErrNotFound))
	}
	if err != nil {
		return SnapshotRecord{}, storageError("get snapshot", err)
	}
	return record, nil
}

// DeleteSnapshot removes one record. Unknown ids yield ErrNotFound.
func (s *Store) DeleteSnapshot(ctx context.Context, id int64) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	return runTx(ctx, db, "delete snapshot", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("id %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRecord(row scanner) (SnapshotRecord, error) {
	var record SnapshotRecord
	var value string
	if err := row.Scan(&record.ID, &record.Key, &value, &record.Timestamp); err != nil {
		return SnapshotRecord{}, err
	}
	record.Value = s.decodeValue(record.ID, value)
	return record, nil
}

// decodeValue accepts both stored hierarchies and raw ESTree documents written by
// older clients. Undecodable values leave the record without a hierarchy.
func (s *Store) decodeValue(id int64, value string) *hierarchy.Node {
	if value == "" || value == "null" {
		return nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &keys); err != nil {
		s.options.Logger.Warn("snapshot value is not JSON", "id", id, "error", err)
		return nil
	}

	if _, isESTree := keys["type"]; isESTree {
		raw, err := models.FromESTree([]byte(value))
		if err == nil {
			var root *hierarchy.Node
			root, err = hierarchy.NewNormalizer(s.options.MaxDepth).Normalize(raw)
			if err == nil {
				return root
			}
		}
		s.options.Logger.Warn("legacy snapshot value could not be normalized", "id", id, "error", err)
		return nil
	}

	root, err := hierarchy.Decode([]byte(value))
	if err != nil {
		s.options.Logger.Warn("snapshot hierarchy could not be decoded", "id", id, "error", err)
		return nil
	}
	return root
}
