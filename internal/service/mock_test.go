package service

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/pkg/ruleapi"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Call(ctx context.Context, e ruleapi.Endpoint, payload any) (json.RawMessage, error) {
	args := m.Called(ctx, e, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockClient) Upload(ctx context.Context, filename string, content []byte) ([]model.Clause, error) {
	args := m.Called(ctx, filename, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Clause), args.Error(1)
}

func (m *mockClient) CheckAtomicity(ctx context.Context, text string) (model.Atomicity, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.Atomicity), args.Error(1)
}

func (m *mockClient) Split(ctx context.Context, text string) ([]model.AtomicRule, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AtomicRule), args.Error(1)
}

func (m *mockClient) Identify(ctx context.Context, text string) (model.Supervision, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.Supervision), args.Error(1)
}

func (m *mockClient) Classify(ctx context.Context, text string) (string, string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockClient) ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error) {
	args := m.Called(ctx, text, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockClient) GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, text, category, entityInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
