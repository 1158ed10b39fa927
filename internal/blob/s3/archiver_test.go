package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/store/memory"
)

type captureWriter struct {
	path        string
	contentType string
	data        []byte
	puts        int
	multiparts  int
}

func (c *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	c.path = path
	c.contentType = contentType
	c.data = buf
	c.puts++
	return nil
}

func (c *captureWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	c.path = path
	c.data = buf
	c.multiparts++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveTradesUploadsJSONL(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	old1 := domain.NewTrade("bid-1", "ask-1", 9.0, 5.0)
	old1.ExecutedAt = cutoff.Add(-48 * time.Hour)
	old2 := domain.NewTrade("bid-2", "ask-2", 10.5, 2.0)
	old2.ExecutedAt = cutoff.Add(-time.Hour)
	recent := domain.NewTrade("bid-3", "ask-3", 11.0, 1.0)
	recent.ExecutedAt = cutoff.Add(time.Hour)

	require.NoError(t, store.UpsertBatch(ctx, []domain.Trade{old1, old2, recent}))

	arch := NewArchiver(writer, store, memory.HistoryView{Store: store}, testLogger())

	count, err := arch.ArchiveTrades(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, "archive/trades/2025-06.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	lines := strings.Split(strings.TrimRight(string(writer.data), "\n"), "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "{"))
		assert.Contains(t, line, `"id":"trade-`)
	}
	assert.NotContains(t, string(writer.data), recent.ID)
}

func TestArchiveTradesEmptySkipsUpload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}
	arch := NewArchiver(writer, store, memory.HistoryView{Store: store}, testLogger())

	count, err := arch.ArchiveTrades(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, writer.puts)
}

func TestPruneTradesDeletesOnlyArchivedRange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}

	cutoff := time.Now().UTC()

	old := domain.NewTrade("bid-1", "ask-1", 9.0, 5.0)
	old.ExecutedAt = cutoff.Add(-time.Hour)
	recent := domain.NewTrade("bid-2", "ask-2", 10.0, 3.0)
	recent.ExecutedAt = cutoff.Add(time.Hour)
	require.NoError(t, store.UpsertBatch(ctx, []domain.Trade{old, recent}))

	arch := NewArchiver(writer, store, memory.HistoryView{Store: store}, testLogger())

	deleted, err := arch.PruneTrades(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, store.TradeCount())
}

func TestArchiveSnapshots(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}
	history := memory.HistoryView{Store: store}

	for step := int64(1); step <= 5; step++ {
		snap := domain.Snapshot{
			Step:       step,
			Timestamp:  time.Now().UTC(),
			GridStress: domain.StressMedium,
		}
		require.NoError(t, history.UpsertSnapshot(ctx, snap))
	}

	arch := NewArchiver(writer, store, history, testLogger())

	count, err := arch.ArchiveSnapshots(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, "archive/history/step-4.jsonl", writer.path)

	deleted, err := arch.PruneSnapshots(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestMarshalJSONLOneLinePerRecord(t *testing.T) {
	records := []map[string]string{{"a": "1"}, {"b": "<&>"}}
	buf, err := marshalJSONL(records)
	require.NoError(t, err)

	assert.Equal(t, 2, bytes.Count(buf, []byte("\n")))
	assert.Contains(t, string(buf), "<&>")
}

func TestUploadUsesMultipartForLargePayloads(t *testing.T) {
	ctx := context.Background()
	writer := &captureWriter{}
	arch := NewArchiver(writer, memory.New(), memory.HistoryView{Store: memory.New()}, testLogger())

	small := bytes.Repeat([]byte("x"), 1024)
	require.NoError(t, arch.upload(ctx, "archive/trades/small.jsonl", small))
	assert.Equal(t, 1, writer.puts)
	assert.Equal(t, 0, writer.multiparts)

	large := bytes.Repeat([]byte("x"), multipartThreshold)
	require.NoError(t, arch.upload(ctx, "archive/trades/large.jsonl", large))
	assert.Equal(t, 1, writer.puts)
	assert.Equal(t, 1, writer.multiparts)
	assert.Equal(t, "archive/trades/large.jsonl", writer.path)
}
