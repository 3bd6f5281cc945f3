package jobs

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

// syncBuffer cron 會在另一個 goroutine 寫日誌
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatsReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	r := NewStatsReporter(fixedCounter(3), fixedCounter(2), fixedCounter(10), zerolog.New(&buf))

	r.Report()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ledger stats", entry["message"])
	assert.EqualValues(t, 2, entry["users"])
	assert.EqualValues(t, 3, entry["locks"])
	assert.EqualValues(t, 10, entry["histories"])
}

func TestStatsReporter_StartRejectsBadSchedule(t *testing.T) {
	r := NewStatsReporter(fixedCounter(0), fixedCounter(0), fixedCounter(0), zerolog.Nop())

	assert.Error(t, r.Start("every minute please"))
}

func TestStatsReporter_RunsOnSchedule(t *testing.T) {
	buf := &syncBuffer{}
	r := NewStatsReporter(fixedCounter(1), fixedCounter(1), fixedCounter(1), zerolog.New(buf))

	require.NoError(t, r.Start("@every 1s"))
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), `"ledger stats"`)
	}, 3*time.Second, 50*time.Millisecond)
}
