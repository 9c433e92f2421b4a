package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/pkg/ruleapi"
)

func strPtr(s string) *string { return &s }

func TestEnrich_FillsAutomatableRowsOnly(t *testing.T) {
	svc := &mockEnrichService{}
	entity := json.RawMessage(`{"subject": "运营者", "object": ["数据"]}`)
	svc.On("ExtractCommonElement", mock.Anything, "子项一", "内容监管").Return(entity, nil)
	svc.On("GenerateCDSRL", mock.Anything, "子项一", "内容监管", json.RawMessage(`{"subject":"运营者","object":["数据"]}`)).
		Return(json.RawMessage(`{"rule":"MUST x"}`), nil)

	rows := []*model.ReportRow{
		{Index: 0, AtomText: "子项一", Automatable: true, Category: "内容监管"},
		{Index: 1, AtomText: "子项二", Automatable: false},
	}

	stats := NewEnricher(svc, 0).Enrich(context.Background(), rows)

	assert.Equal(t, EnrichStats{Attempted: 1, Succeeded: 1}, stats)
	require.NotNil(t, rows[0].CommonElement)
	assert.Equal(t, `{"subject":"运营者","object":["数据"]}`, *rows[0].CommonElement)
	require.NotNil(t, rows[0].CDSRLResult)
	assert.Equal(t, `{"rule":"MUST x"}`, *rows[0].CDSRLResult)
	assert.Nil(t, rows[1].CommonElement)
	assert.Nil(t, rows[1].CDSRLResult)
	svc.AssertExpectations(t)
}

func TestEnrich_ExtractFailureWritesErrorPayload(t *testing.T) {
	svc := &mockEnrichService{}
	svc.On("ExtractCommonElement", mock.Anything, "a", "c").Return(nil, errors.New("retries exhausted"))
	svc.On("ExtractCommonElement", mock.Anything, "b", "c").Return(json.RawMessage(`{}`), nil)
	svc.On("GenerateCDSRL", mock.Anything, "b", "c", json.RawMessage(`{}`)).Return(json.RawMessage(`"ok"`), nil)

	rows := []*model.ReportRow{
		{Index: 0, AtomText: "a", Automatable: true, Category: "c"},
		{Index: 1, AtomText: "b", Automatable: true, Category: "c"},
	}

	stats := NewEnricher(svc, 0).Enrich(context.Background(), rows)

	assert.Equal(t, EnrichStats{Attempted: 2, Succeeded: 1, Failed: 1}, stats)
	assert.Equal(t, `{"error":"retries exhausted"}`, *rows[0].CommonElement)
	assert.Equal(t, `{"error":"retries exhausted"}`, *rows[0].CDSRLResult)
	assert.Equal(t, `{}`, *rows[1].CommonElement)
	assert.Equal(t, `"ok"`, *rows[1].CDSRLResult)
	svc.AssertNotCalled(t, "GenerateCDSRL", mock.Anything, "a", mock.Anything, mock.Anything)
}

func TestEnrich_TerminalStatusCarriesStatusCode(t *testing.T) {
	svc := &mockEnrichService{}
	svc.On("ExtractCommonElement", mock.Anything, "a", "c").Return(json.RawMessage(`{"k":1}`), nil)
	svc.On("GenerateCDSRL", mock.Anything, "a", "c", json.RawMessage(`{"k":1}`)).
		Return(nil, &ruleapi.StatusError{Endpoint: ruleapi.EndpointGenerate, StatusCode: http.StatusBadRequest})

	rows := []*model.ReportRow{{AtomText: "a", Automatable: true, Category: "c"}}
	stats := NewEnricher(svc, 0).Enrich(context.Background(), rows)

	assert.Equal(t, 1, stats.Failed)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(*rows[0].CDSRLResult), &payload))
	assert.Equal(t, "Request failed", payload["error"])
	assert.Equal(t, float64(400), payload["status_code"])
	assert.Equal(t, *rows[0].CDSRLResult, *rows[0].CommonElement)
}

func TestEnrich_RepeatRunKeepsValidJSON(t *testing.T) {
	svc := &mockEnrichService{}
	svc.On("ExtractCommonElement", mock.Anything, "a", "c").Return(json.RawMessage(`not json <b>`), nil)
	svc.On("GenerateCDSRL", mock.Anything, "a", "c", mock.Anything).Return(json.RawMessage(`{"r":"<x>"}`), nil)

	rows := []*model.ReportRow{{AtomText: "a", Automatable: true, Category: "c",
		CommonElement: strPtr(`{"old":true}`), CDSRLResult: strPtr(`{"old":true}`)}}

	e := NewEnricher(svc, 0)
	for range 2 {
		e.Enrich(context.Background(), rows)
		assert.True(t, json.Valid([]byte(*rows[0].CommonElement)))
		assert.True(t, json.Valid([]byte(*rows[0].CDSRLResult)))
	}
	assert.Equal(t, `"not json <b>"`, *rows[0].CommonElement)
	assert.Equal(t, `{"r":"<x>"}`, *rows[0].CDSRLResult)
}

func TestEnrich_RowLimit(t *testing.T) {
	probe := &probeEnrichService{delay: 20 * time.Millisecond}
	var rows []*model.ReportRow
	for i := range 8 {
		rows = append(rows, &model.ReportRow{Index: i, AtomText: "r", Automatable: true})
	}

	stats := NewEnricher(probe, 2).Enrich(context.Background(), rows)

	assert.Equal(t, 8, stats.Succeeded)
	assert.Equal(t, 8, probe.calls)
	assert.LessOrEqual(t, probe.peak, 2)
}

func TestEnrich_NilAndEmptyRows(t *testing.T) {
	stats := NewEnricher(&mockEnrichService{}, 0).Enrich(context.Background(), []*model.ReportRow{nil})
	assert.Equal(t, EnrichStats{}, stats)
}

func TestJSONCell(t *testing.T) {
	assert.Equal(t, "null", jsonCell(nil))
	assert.Equal(t, "null", jsonCell(json.RawMessage("  ")))
	assert.Equal(t, `{"a":[1,2]}`, jsonCell(json.RawMessage("{ \"a\": [1, 2] }")))
	assert.Equal(t, `"plain text"`, jsonCell(json.RawMessage("plain text")))
}

func TestMarshalCell_NoHTMLEscape(t *testing.T) {
	assert.Equal(t, `{"error":"<a> & 监管"}`, marshalCell(map[string]string{"error": "<a> & 监管"}))
}
