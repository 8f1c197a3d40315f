package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardarb/internal/domain"
)

// Archiver moves expired opportunities out of the primary store and into
// object storage. The upload happens before the delete so a failed sweep
// never loses records; each sweep writes its own object and deletes exactly
// the rows it uploaded.
type Archiver struct {
	writer domain.BlobWriter
	store  domain.OpportunityStore
}

// NewArchiver creates an Archiver over the given writer and store.
func NewArchiver(writer domain.BlobWriter, store domain.OpportunityStore) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
	}
}

// archiveBatchLimit bounds one sweep so a long backlog is drained across
// several runs instead of one huge upload.
const archiveBatchLimit = 10_000

// ArchiveExpired uploads one batch of opportunities expired as of now and
// then deletes exactly that batch from the store. It returns the number of
// archived records.
func (a *Archiver) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	opps, err := a.store.ListExpired(ctx, now, archiveBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	key := archiveKey(now)
	if err := a.writer.Write(ctx, key, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	ids := make([]string, len(opps))
	for i, opp := range opps {
		ids[i] = opp.ID
	}
	deleted, err := a.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive delete: %w", err)
	}
	return deleted, nil
}

// archiveKey builds the S3 key for one sweep's archive file, partitioned by
// day with a per-sweep timestamp so consecutive sweeps never collide:
//
//	archive/opportunities/2026-08-30/030000.jsonl
func archiveKey(now time.Time) string {
	return fmt.Sprintf("archive/opportunities/%s.jsonl", now.UTC().Format("2006-01-02/150405"))
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
