package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// Archiver uploads settlement reports and bet trails of resolved markets to
// object storage as JSONL, one file per market. Archived data is a copy;
// nothing is deleted from the primary store here.
type Archiver struct {
	writer domain.BlobWriter
	bets   domain.BetStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, bets domain.BetStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		bets:   bets,
		audit:  audit,
	}
}

// ArchiveSettlement uploads a settlement report to
// settlements/{year}/{marketID}.json and the market's full bet trail to
// settlements/{year}/{marketID}-bets.jsonl.
func (a *Archiver) ArchiveSettlement(ctx context.Context, marketID string, report any, resolvedAt time.Time) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement report %s: %w", marketID, err)
	}

	year := resolvedAt.Format("2006")
	reportPath := fmt.Sprintf("settlements/%s/%s.json", year, marketID)
	if err := a.writer.Put(ctx, reportPath, reportJSON, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive settlement %s: %w", marketID, err)
	}

	bets, err := a.bets.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("s3blob: archive settlement %s bets: %w", marketID, err)
	}

	count := 0
	if len(bets) > 0 {
		buf, err := marshalJSONL(bets)
		if err != nil {
			return fmt.Errorf("s3blob: marshal bet trail %s: %w", marketID, err)
		}
		betsPath := fmt.Sprintf("settlements/%s/%s-bets.jsonl", year, marketID)
		if err := a.writer.Put(ctx, betsPath, buf, "application/x-ndjson"); err != nil {
			return fmt.Errorf("s3blob: archive bet trail %s: %w", marketID, err)
		}
		count = len(bets)
	}

	if err := a.audit.Log(ctx, "archive.settlement", map[string]any{
		"market_id": marketID,
		"path":      reportPath,
		"bets":      count,
	}); err != nil {
		return fmt.Errorf("s3blob: archive settlement %s audit log: %w", marketID, err)
	}
	return nil
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
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
