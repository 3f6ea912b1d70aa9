package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = `id, query_id, raw, source, year_hint, normalized_title, normalized_year,
	movie_id, movie_title, movie_version, status, error_message, channel_ref, created_at, updated_at`

// NewItem inserts a freshly submitted query in the received state.
func (s *Store) NewItem(ctx context.Context, queryID, raw, source string, yearHint int) (*Item, error) {
	ctx = ensureContext(ctx)
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return nil, errors.New("query id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx, `
        INSERT INTO queue_items (query_id, raw, source, year_hint, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		queryID, raw, source, yearHint, StatusReceived, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads an item by its row ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE id = ?", id)
	return scanItem(row)
}

// GetByQueryID loads an item by its query identifier.
func (s *Store) GetByQueryID(ctx context.Context, queryID string) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE query_id = ?", queryID)
	return scanItem(row)
}

// Update persists the mutable fields of an item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil || item.ID == 0 {
		return errors.New("item with id required")
	}
	if !item.Status.Valid() {
		return fmt.Errorf("invalid status %q", item.Status)
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx, `
        UPDATE queue_items SET
            normalized_title = ?, normalized_year = ?, movie_id = ?, movie_title = ?,
            movie_version = ?, status = ?, error_message = ?, channel_ref = ?, updated_at = ?
        WHERE id = ?`,
		item.NormalizedTitle, item.NormalizedYear, item.MovieID, item.MovieTitle,
		item.MovieVersion, item.Status, item.ErrorMessage, item.ChannelRef,
		item.UpdatedAt.Format(time.RFC3339Nano), item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return nil
}

// List returns items filtered by status, newest first. With no statuses,
// all items are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + itemColumns + " FROM queue_items"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ResetInFlight returns crashed in-flight items to the received state so a
// restarted daemon picks them up again. Returns the number reset.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	placeholders := make([]string, len(inFlightStatuses))
	args := make([]any, 0, len(inFlightStatuses)+2)
	args = append(args, StatusReceived, time.Now().UTC().Format(time.RFC3339Nano))
	for i, status := range inFlightStatuses {
		placeholders[i] = "?"
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE queue_items SET status = ?, updated_at = ? WHERE status IN ("+strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes terminal items. When all is set, every item is removed.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := "DELETE FROM queue_items WHERE status IN (?, ?)"
	args := []any{StatusDone, StatusFailed}
	if all {
		query = "DELETE FROM queue_items"
		args = nil
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates queue counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM queue_items GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusReceived:
			summary.Received += count
		case StatusAwaitingSelection:
			summary.Suspended += count
		case StatusDone:
			summary.Done += count
		case StatusFailed:
			summary.Failed += count
		default:
			summary.InFlight += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&item.ID, &item.QueryID, &item.Raw, &item.Source, &item.YearHint,
		&item.NormalizedTitle, &item.NormalizedYear, &item.MovieID, &item.MovieTitle,
		&item.MovieVersion, &item.Status, &item.ErrorMessage, &item.ChannelRef,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		item.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		item.UpdatedAt = ts
	}
	return &item, nil
}
