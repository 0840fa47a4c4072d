package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateWindow(t *testing.T) {
	w, err := NewDateWindow("2024-05-01", "2024-05-07", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.True(t, w.Contains(time.Date(2024, 5, 7, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-01..2024-05-07", w.String())
}

func TestNewDateWindow_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"reversed", "2024-05-07", "2024-05-01"},
		{"bad from", "05/01/2024", "2024-05-07"},
		{"bad to", "2024-05-01", "tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDateWindow(tt.from, tt.to, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidDateRange)
		})
	}
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	w := LastDays(now, 7)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), w.Start)
	assert.True(t, w.Contains(now))
}

func TestParseRecordDay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/04/2024", time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), true},
		{"1/4/2024", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-04-15", time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), true},
		{" 2024-04-15 ", time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), true},
		{"15/13/2024", time.Time{}, false},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRecordDay(tt.in, time.UTC)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}
