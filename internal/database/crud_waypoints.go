// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/waymark/internal/models"
)

// CreateWaypoint inserts a new waypoint and returns it with its
// store-assigned id and creation timestamp. Coordinate ranges are enforced
// by the table CHECK constraints as a last line of defense; callers are
// expected to validate before reaching the store.
func (db *DB) CreateWaypoint(ctx context.Context, lat, lng float64, ownerID int64, ownerName string) (*models.Waypoint, error) {
	wp := &models.Waypoint{
		Lat:       lat,
		Lng:       lng,
		OwnerID:   ownerID,
		OwnerName: ownerName,
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO waypoints (lat, lng, user_id, username)
		 VALUES (?, ?, ?, ?)
		 RETURNING id, created_at`,
		lat, lng, ownerID, ownerName,
	).Scan(&wp.ID, &wp.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("waypoint violates coordinate constraints: %w", err)
		}
		return nil, fmt.Errorf("failed to insert waypoint: %w", err)
	}

	return wp, nil
}

// ListWaypoints returns all waypoints ordered by creation time ascending.
// The id tie-break keeps the order stable when timestamps collide.
func (db *DB) ListWaypoints(ctx context.Context) ([]models.Waypoint, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, lat, lng, user_id, username, created_at
		 FROM waypoints
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query waypoints: %w", err)
	}
	defer closeWithLog(rows, "waypoint rows")

	waypoints := make([]models.Waypoint, 0)
	for rows.Next() {
		var wp models.Waypoint
		if err := rows.Scan(&wp.ID, &wp.Lat, &wp.Lng, &wp.OwnerID, &wp.OwnerName, &wp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		waypoints = append(waypoints, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waypoint iteration failed: %w", err)
	}

	return waypoints, nil
}

// DeleteWaypoint removes a waypoint if and only if it is owned by
// requesterID. Returns the number of rows deleted (0 or 1). "Not found" and
// "not yours" both come back as 0; the two are indistinguishable on purpose
// so callers cannot probe for other users' entities.
func (db *DB) DeleteWaypoint(ctx context.Context, id, requesterID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM waypoints WHERE id = ? AND user_id = ?`, id, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete waypoint %d: %w", id, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted waypoints: %w", err)
	}
	return deleted, nil
}

// DeleteAllWaypoints removes every waypoint owned by ownerID and returns
// the count removed.
func (db *DB) DeleteAllWaypoints(ctx context.Context, ownerID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM waypoints WHERE user_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete waypoints for user %d: %w", ownerID, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted waypoints: %w", err)
	}
	return deleted, nil
}
