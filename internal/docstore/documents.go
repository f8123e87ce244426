package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is a stored JSON object addressed by collection and id.
// Data never contains the id itself.
type Document struct {
	ID   string
	Data map[string]any
}

// Order selects a top-level field to sort a listing by.
type Order struct {
	Field string
	Desc  bool
}

func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	if s == nil || s.db == nil {
		return Document{}, fmt.Errorf("storage: missing database connection")
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT data
		FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, err
	}

	data, err := decode(raw)
	if err != nil {
		return Document{}, fmt.Errorf("storage: decode %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: data}, nil
}

func (s *Store) List(ctx context.Context, collection string, order Order) ([]Document, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	query := `SELECT id, data FROM documents WHERE collection = ?`
	args := []any{collection}
	if order.Field != "" {
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		query += " ORDER BY json_extract(data, ?) " + direction + ", id"
		args = append(args, "$."+order.Field)
	} else {
		query += " ORDER BY id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("storage: decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Add stores data under a freshly generated id and returns it.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := s.writable(); err != nil {
		return "", err
	}

	raw, err := encode(data)
	if err != nil {
		return "", err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
	`, collection, id, raw)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update merges fields into the stored document at the top level only.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) (err error) {
	if err := s.writable(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var raw string
	err = tx.QueryRowContext(ctx, `
		SELECT data
		FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return err
	}

	data, err := decode(raw)
	if err != nil {
		return fmt.Errorf("storage: decode %s/%s: %w", collection, id, err)
	}
	for key, value := range fields {
		data[key] = value
	}

	merged, err := encode(data)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ?
		WHERE collection = ? AND id = ?
	`, merged, collection, id); err != nil {
		return err
	}

	return tx.Commit()
}

// Set replaces the whole stored document. The document must already exist.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := s.writable(); err != nil {
		return err
	}

	raw, err := encode(data)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET data = ?
		WHERE collection = ? AND id = ?
	`, raw, collection, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

func encode(data map[string]any) (string, error) {
	clean := make(map[string]any, len(data))
	for key, value := range data {
		if key == "id" {
			continue
		}
		clean[key] = value
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("storage: encode document: %w", err)
	}
	return string(raw), nil
}

func decode(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
