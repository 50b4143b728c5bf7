package match

import (
	"database/sql"
	"time"
)

// Columns is the select list understood by ScanMatch.
const Columns = `id, owner_id, title, starts_at, status, field_capacity, goalkeeper_capacity,
	auto_promote_minutes, field_count, goalkeeper_count, waiting_count,
	COALESCE(team1_name, ''), COALESCE(team2_name, ''), version, created_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanMatch reads one row selected with Columns.
func ScanMatch(row Scanner) (*Match, error) {
	var (
		m                   Match
		startsAt, createdAt int64
	)
	err := row.Scan(&m.ID, &m.OwnerID, &m.Title, &startsAt, &m.Status, &m.FieldCapacity, &m.GoalkeeperCapacity,
		&m.AutoPromoteMinutes, &m.FieldCount, &m.GoalkeeperCount, &m.WaitingCount,
		&m.Team1Name, &m.Team2Name, &m.Version, &createdAt)
	if err != nil {
		return nil, err
	}
	m.StartsAt = FromMillis(startsAt)
	m.CreatedAt = FromMillis(createdAt)
	return &m, nil
}

// Millis is the storage encoding for timestamps.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// NullMillis encodes an optional timestamp.
func NullMillis(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func FromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromMillis(n.Int64)
	return &t
}
