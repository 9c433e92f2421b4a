package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/regrule/internal/model"
)

// --- Rule service mock ---

type mockRuleService struct {
	mock.Mock
}

func (m *mockRuleService) CheckAtomicity(ctx context.Context, text string) (model.Atomicity, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.Atomicity), args.Error(1)
}

func (m *mockRuleService) Split(ctx context.Context, text string) ([]model.AtomicRule, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AtomicRule), args.Error(1)
}

func (m *mockRuleService) Identify(ctx context.Context, text string) (model.Supervision, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.Supervision), args.Error(1)
}

func (m *mockRuleService) Classify(ctx context.Context, text string) (string, string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.String(1), args.Error(2)
}

// --- Enrichment service mock ---

type mockEnrichService struct {
	mock.Mock
}

func (m *mockEnrichService) ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error) {
	args := m.Called(ctx, text, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockEnrichService) GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, text, category, entityInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// --- Concurrency probe ---

// probeEnrichService records how many extraction calls overlap.
type probeEnrichService struct {
	delay time.Duration

	mu     sync.Mutex
	active int
	peak   int
	calls  int
}

func (p *probeEnrichService) enter() {
	p.mu.Lock()
	p.active++
	p.calls++
	p.peak = max(p.peak, p.active)
	p.mu.Unlock()
}

func (p *probeEnrichService) leave() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

func (p *probeEnrichService) ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error) {
	p.enter()
	defer p.leave()
	time.Sleep(p.delay)
	return json.RawMessage(`{"subject":"` + text + `"}`), nil
}

func (p *probeEnrichService) GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"cdsrl":"ok"}`), nil
}
