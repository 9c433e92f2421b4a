package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/pkg/ruleapi"
)

// EnrichService is the subset of the rule service used by enrichment.
type EnrichService interface {
	ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error)
	GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error)
}

// EnrichStats counts the outcome of an enrichment pass.
type EnrichStats struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Enricher fills the common_element and CDSRL_result fields of automatable
// rows. Rows are enriched concurrently; admission and pacing come from the
// gate configured on the rule service client.
type Enricher struct {
	svc      EnrichService
	rowLimit int
}

// NewEnricher creates an Enricher. rowLimit caps the number of row
// goroutines alive at once; zero or negative means unbounded.
func NewEnricher(svc EnrichService, rowLimit int) *Enricher {
	return &Enricher{svc: svc, rowLimit: rowLimit}
}

// Enrich processes every automatable row. A failing row gets an error
// payload in both fields and never affects its siblings.
func (e *Enricher) Enrich(ctx context.Context, rows []*model.ReportRow) EnrichStats {
	var g errgroup.Group
	if e.rowLimit > 0 {
		g.SetLimit(e.rowLimit)
	}

	var attempted, succeeded, failed atomic.Int64
	for _, row := range rows {
		if row == nil || !row.Automatable {
			continue
		}
		attempted.Add(1)
		g.Go(func() error {
			if e.enrichRow(ctx, row) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return EnrichStats{
		Attempted: int(attempted.Load()),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}
}

func (e *Enricher) enrichRow(ctx context.Context, row *model.ReportRow) bool {
	log := zap.L().With(zap.Int("row", row.Index))

	entity, err := e.svc.ExtractCommonElement(ctx, row.AtomText, row.Category)
	if err != nil {
		log.Error("extract common element failed", zap.Error(err))
		setRowError(row, err)
		return false
	}
	common := jsonCell(entity)
	row.CommonElement = &common
	log.Debug("common element extracted", zap.String("entity_info", common))

	result, err := e.svc.GenerateCDSRL(ctx, row.AtomText, row.Category, json.RawMessage(common))
	if err != nil {
		log.Error("generate CDSRL failed", zap.Error(err))
		setRowError(row, err)
		return false
	}
	cdsrl := jsonCell(result)
	row.CDSRLResult = &cdsrl
	return true
}

func setRowError(row *model.ReportRow, err error) {
	payload := marshalCell(ruleapi.ErrorPayload(err))
	ce, cd := payload, payload
	row.CommonElement = &ce
	row.CDSRLResult = &cd
}

// jsonCell returns raw as compact JSON text. Bodies that are not valid JSON
// are stored as a JSON string so the cell always holds valid JSON.
func jsonCell(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	if json.Valid(raw) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return marshalCell(string(raw))
}

// marshalCell encodes v without HTML escaping so CJK and markup survive as
// written.
func marshalCell(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return `{"error":"unencodable value"}`
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
