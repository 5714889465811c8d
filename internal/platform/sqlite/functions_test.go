package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseFold(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
		want sql.NullString
	}{
		{"ascii", "Buy Groceries", sql.NullString{String: "buy groceries", Valid: true}},
		{"umlaut", "ÜBERPRÜFEN", sql.NullString{String: "überprüfen", Valid: true}},
		{"greek", "ΣΟΦΙΑ", sql.NullString{String: "σοφια", Valid: true}},
		{"blob", []byte("ÄRGER"), sql.NullString{String: "ärger", Valid: true}},
		{"null", nil, sql.NullString{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sql.NullString
			require.NoError(t, db.QueryRowContext(ctx, `SELECT `+CaseFoldFunc+`(?)`, tt.in).Scan(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimestampsStoredAsMicroseconds(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"epoch", time.Unix(0, 0).UTC()},
		{"recent", time.Date(2025, 6, 1, 12, 30, 0, 123456000, time.UTC)},
		{"past nanosecond range", time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"last representable year", time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)},
		{"before epoch", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := toMicros(tt.at)
			assert.Equal(t, tt.at.UnixMicro(), n)
			assert.True(t, tt.at.Equal(fromMicros(n)), "got %s", fromMicros(n))
		})
	}
}
