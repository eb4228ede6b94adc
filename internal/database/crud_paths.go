// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package database

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waymark/internal/models"
)

// CreatePath inserts a new path and returns it with its store-assigned id
// and creation timestamp. Points are persisted as a JSON array so their
// order survives storage and retransmission byte for byte.
func (db *DB) CreatePath(ctx context.Context, points []models.LatLng, ownerID int64, ownerName string) (*models.Path, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("path requires at least 2 points, got %d", len(points))
	}

	pointsJSON, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode path points: %w", err)
	}

	p := &models.Path{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Points:    points,
	}

	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO paths (user_id, username, points_json)
		 VALUES (?, ?, ?)
		 RETURNING id, created_at`,
		ownerID, ownerName, string(pointsJSON),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert path: %w", err)
	}

	return p, nil
}

// ListPaths returns all paths ordered by creation time ascending.
func (db *DB) ListPaths(ctx context.Context) ([]models.Path, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, username, points_json, created_at
		 FROM paths
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer closeWithLog(rows, "path rows")

	paths := make([]models.Path, 0)
	for rows.Next() {
		var p models.Path
		var pointsJSON string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.OwnerName, &pointsJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		if err := json.Unmarshal([]byte(pointsJSON), &p.Points); err != nil {
			return nil, fmt.Errorf("failed to decode points for path %d: %w", p.ID, err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("path iteration failed: %w", err)
	}

	return paths, nil
}

// DeletePath removes a path if and only if it is owned by requesterID.
// Returns the number of rows deleted (0 or 1); absent and not-owned both
// report 0.
func (db *DB) DeletePath(ctx context.Context, id, requesterID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM paths WHERE id = ? AND user_id = ?`, id, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete path %d: %w", id, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted paths: %w", err)
	}
	return deleted, nil
}

// DeleteAllPaths removes every path owned by ownerID and returns the count
// removed.
func (db *DB) DeleteAllPaths(ctx context.Context, ownerID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM paths WHERE user_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete paths for user %d: %w", ownerID, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted paths: %w", err)
	}
	return deleted, nil
}

// ClearAllResult reports what an atomic clear removed.
type ClearAllResult struct {
	DeletedWaypoints int64
	DeletedPaths     int64
}

// ClearAll deletes every waypoint and path owned by ownerID inside a single
// transaction. Either both deletes commit or neither is visible; there is no
// window where one table is cleared and the other still holds the owner's
// rows. Concurrent creates by the same owner either commit before the clear
// (and are removed) or after it (and survive intact).
func (db *DB) ClearAll(ctx context.Context, ownerID int64) (*ClearAllResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer func() { _ = tx.Rollback() }()

	result := &ClearAllResult{}

	res, err := tx.ExecContext(ctx, `DELETE FROM waypoints WHERE user_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear waypoints for user %d: %w", ownerID, err)
	}
	if result.DeletedWaypoints, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to count cleared waypoints: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM paths WHERE user_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear paths for user %d: %w", ownerID, err)
	}
	if result.DeletedPaths, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to count cleared paths: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit clear transaction: %w", err)
	}

	return result, nil
}
