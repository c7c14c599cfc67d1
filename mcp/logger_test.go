package mcp

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryLogEviction(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 3)

	for _, q := range []string{"Q1", "Q2", "Q3", "Q4", "Q5"} {
		log.Record(q, time.Millisecond, 1, nil)
	}

	entries := log.Recent(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "Q3", entries[0].Query)
	assert.Equal(t, "Q5", entries[2].Query)
}

func TestQueryLogTruncatesLongSQL(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 10)
	log.Record(strings.Repeat("x", QueryLogSQLLimit+50), time.Millisecond, 0, nil)

	entries := log.Recent(1)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Query, QueryLogSQLLimit+3)
	assert.True(t, strings.HasSuffix(entries[0].Query, "..."))
}

func TestQueryLogRecordsFailure(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 10)
	log.Record("SELECT 1 FROM DUAL", 2*time.Millisecond, 0, errors.New("ORA-00942: table or view does not exist"))

	entries := log.Recent(1)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Contains(t, entries[0].Error, "ORA-00942")
}

func TestQueryLogRecentLimit(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 10)
	for _, q := range []string{"A", "B", "C"} {
		log.Record(q, time.Millisecond, 0, nil)
	}

	entries := log.Recent(2)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Query)
	assert.Equal(t, "C", entries[1].Query)
}

func TestQueryLogSlow(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 10)
	log.Record("FAST", 5*time.Millisecond, 0, nil)
	log.Record("SLOW", 500*time.Millisecond, 0, nil)

	slow := log.Slow(100 * time.Millisecond)
	require.Len(t, slow, 1)
	assert.Equal(t, "SLOW", slow[0].Query)
}

func TestQueryLogDefaultCapacity(t *testing.T) {
	log := NewQueryLog(zap.NewNop(), 0)
	assert.Equal(t, QueryLogCapacity, log.capacity)
}
