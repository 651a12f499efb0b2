package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	token := EncodeCursor(want)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "/")

	got, err := ParseCursor(token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{})[:4]} {
		_, err := ParseCursor(token)
		assert.Error(t, err, token)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrim(t *testing.T) {
	base := time.Now().UTC()
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	key := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 3, key)
	require.Len(t, page, 3)
	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, cursor.ID)

	page, next = Trim(rows[:2], 3, key)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
