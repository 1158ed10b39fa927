package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// Archiver moves aged market data out of the primary store: it queries
// records before a cutoff, serialises them to JSONL, and uploads the file.
//
// Deletion of the archived rows is NOT performed as part of the upload; it
// is a separate, explicit step so an operator can verify the archive first.
type Archiver struct {
	writer  domain.BlobWriter
	trades  domain.TradeStore
	history domain.HistoryStore
	logger  *slog.Logger
}

// NewArchiver creates an Archiver over the given stores.
func NewArchiver(writer domain.BlobWriter, trades domain.TradeStore, history domain.HistoryStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer:  writer,
		trades:  trades,
		history: history,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades uploads all trades executed before the cutoff to
// archive/trades/YYYY-MM.jsonl and returns the archived count.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))
	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before))

	return count, nil
}

// ArchiveSnapshots uploads all history snapshots with a step below the given
// step to archive/history/step-N.jsonl and returns the archived count.
func (a *Archiver) ArchiveSnapshots(ctx context.Context, beforeStep int64) (int64, error) {
	snaps, err := a.history.ListBefore(ctx, beforeStep)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(snaps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots marshal: %w", err)
	}

	path := fmt.Sprintf("archive/history/step-%d.jsonl", beforeStep)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots upload: %w", err)
	}

	count := int64(len(snaps))
	a.logger.Info("archived snapshots",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Int64("before_step", beforeStep))

	return count, nil
}

// PruneTrades deletes trades already archived before the cutoff. Call only
// after verifying the corresponding archive object.
func (a *Archiver) PruneTrades(ctx context.Context, before time.Time) (int64, error) {
	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune trades: %w", err)
	}
	a.logger.Info("pruned trades", slog.Int64("deleted", deleted), slog.Time("before", before))
	return deleted, nil
}

// PruneSnapshots deletes history snapshots already archived below the step.
func (a *Archiver) PruneSnapshots(ctx context.Context, beforeStep int64) (int64, error) {
	deleted, err := a.history.DeleteBefore(ctx, beforeStep)
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune snapshots: %w", err)
	}
	a.logger.Info("pruned snapshots", slog.Int64("deleted", deleted), slog.Int64("before_step", beforeStep))
	return deleted, nil
}

// multipartThreshold is the payload size above which uploads switch to the
// concurrent multipart path.
const multipartThreshold = 8 * 1024 * 1024

// upload sends a JSONL payload, using multipart for large files.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) >= multipartThreshold {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
