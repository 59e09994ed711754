package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetOAStatus returns the cached record for doi; ok is false on a miss.
func (d *DB) GetOAStatus(ctx context.Context, doi string) (rec OARecord, ok bool, err error) {
	var isOA int
	var loc, ver sql.NullString
	var checked int64
	err = d.conn.QueryRowContext(ctx,
		"SELECT doi, is_oa, oa_location, oa_version, checked_at FROM oa_status WHERE doi = ?", doi,
	).Scan(&rec.DOI, &isOA, &loc, &ver, &checked)
	if errors.Is(err, sql.ErrNoRows) {
		return OARecord{}, false, nil
	}
	if err != nil {
		return OARecord{}, false, fmt.Errorf("getting oa status: %w", err)
	}
	rec.IsOA = isOA != 0
	rec.Location = loc.String
	rec.Version = ver.String
	rec.CheckedAt = time.UnixMilli(checked)
	return rec, true, nil
}

// PutOAStatus stores rec, replacing any previous answer for the DOI.
func (d *DB) PutOAStatus(ctx context.Context, rec OARecord) error {
	isOA := 0
	if rec.IsOA {
		isOA = 1
	}
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO oa_status (doi, is_oa, oa_location, oa_version, checked_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(doi) DO UPDATE SET is_oa = excluded.is_oa, oa_location = excluded.oa_location,
		   oa_version = excluded.oa_version, checked_at = excluded.checked_at`,
		rec.DOI, isOA, nullStr(rec.Location), nullStr(rec.Version), rec.CheckedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storing oa status: %w", err)
	}
	return nil
}

func (d *DB) DeleteOAStatus(ctx context.Context, doi string) error {
	if _, err := d.conn.ExecContext(ctx, "DELETE FROM oa_status WHERE doi = ?", doi); err != nil {
		return fmt.Errorf("deleting oa status: %w", err)
	}
	return nil
}

// PruneOAStatus deletes records checked before cutoff and returns how many
// were removed.
func (d *DB) PruneOAStatus(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM oa_status WHERE checked_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning oa status: %w", err)
	}
	return res.RowsAffected()
}
