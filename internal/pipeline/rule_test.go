package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/regrule/internal/model"
)

func TestClassify_AtomicClauseIsNotSplit(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "条款").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "条款").Return(model.AutoSupervised, nil)
	svc.On("Classify", mock.Anything, "条款").Return("内容监管", "禁止类", nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "条款"})

	assert.True(t, res.Detected)
	assert.Equal(t, model.AtomicityAtomic, res.Atomicity)
	assert.Equal(t, []model.AtomicRule{{Text: "条款"}}, res.Rules)
	assert.Equal(t, []model.SupervisionVerdict{{Automatable: true, Category: "内容监管", Type: "禁止类"}}, res.Verdicts)
	assert.Empty(t, res.Errs)
	svc.AssertNotCalled(t, "Split", mock.Anything, mock.Anything)
	svc.AssertExpectations(t)
}

func TestClassify_ComplexClauseKeepsSplitOrder(t *testing.T) {
	clause := model.Clause{Order: "A", Content: "A. 子项一；子项二。"}

	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, clause.Content).Return(model.AtomicityComplex, nil)
	svc.On("Split", mock.Anything, clause.Content).Return([]model.AtomicRule{{Text: "子项一"}, {Text: "子项二"}}, nil)
	svc.On("Identify", mock.Anything, "子项一").Return(model.AutoSupervised, nil)
	svc.On("Classify", mock.Anything, "子项一").Return("行为监管", "义务类", nil)
	svc.On("Identify", mock.Anything, "子项二").Return(model.NotAutoSupervised, nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), clause)

	require.Len(t, res.Rules, 2)
	assert.Equal(t, "子项一", res.Rules[0].Text)
	assert.Equal(t, "子项二", res.Rules[1].Text)
	assert.Equal(t, model.SupervisionVerdict{Automatable: true, Category: "行为监管", Type: "义务类"}, res.Verdicts[0])
	assert.Equal(t, model.SupervisionVerdict{}, res.Verdicts[1])

	rows := res.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Order)
	assert.Equal(t, "0", rows[0].Atomicity)
	assert.Empty(t, rows[1].Order)
	assert.Empty(t, rows[1].ClauseText)
	assert.Empty(t, rows[1].Atomicity)

	svc.AssertNotCalled(t, "Classify", mock.Anything, "子项二")
	svc.AssertExpectations(t)
}

func TestClassify_NotAutoSupervisedSkipsClassification(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "x").Return(model.NotAutoSupervised, nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "x"})

	assert.Equal(t, []model.SupervisionVerdict{{Automatable: false, Category: "", Type: ""}}, res.Verdicts)
	svc.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestClassify_DetectionFailure(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityComplex, errors.New("down"))

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "7", Content: "x"})

	assert.False(t, res.Detected)
	assert.Equal(t, []model.AtomicRule{{Text: "x"}}, res.Rules)
	assert.Equal(t, []model.SupervisionVerdict{{}}, res.Verdicts)
	require.Len(t, res.Errs, 1)

	var se *StageError
	require.ErrorAs(t, res.Errs[0], &se)
	assert.Equal(t, StateDetecting, se.State)

	rows := res.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].Order)
	assert.Empty(t, rows[0].Atomicity)
	assert.Equal(t, "x", rows[0].AtomText)
	svc.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything)
}

func TestClassify_SplitFailureFallsBackToClause(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityComplex, nil)
	svc.On("Split", mock.Anything, "x").Return(nil, errors.New("split down"))
	svc.On("Identify", mock.Anything, "x").Return(model.NotAutoSupervised, nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "x"})

	assert.True(t, res.Detected)
	assert.Equal(t, []model.AtomicRule{{Text: "x"}}, res.Rules)
	require.Len(t, res.Errs, 1)
	var se *StageError
	require.ErrorAs(t, res.Errs[0], &se)
	assert.Equal(t, StateSplitting, se.State)
}

func TestClassify_EmptySplitFallsBackToClause(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityComplex, nil)
	svc.On("Split", mock.Anything, "x").Return([]model.AtomicRule{}, nil)
	svc.On("Identify", mock.Anything, "x").Return(model.NotAutoSupervised, nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "x"})

	assert.Equal(t, []model.AtomicRule{{Text: "x"}}, res.Rules)
	assert.Empty(t, res.Errs)
}

func TestClassify_IdentifyFailureDegradesRule(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "x").Return(model.NotAutoSupervised, errors.New("503"))

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "x"})

	assert.Equal(t, []model.SupervisionVerdict{{}}, res.Verdicts)
	require.Len(t, res.Errs, 1)
	var se *StageError
	require.ErrorAs(t, res.Errs[0], &se)
	assert.Equal(t, StateIdentifying, se.State)
	assert.Equal(t, "x", se.Text)
}

func TestClassify_ClassifyFailureKeepsAutomatable(t *testing.T) {
	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "x").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "x").Return(model.AutoSupervised, nil)
	svc.On("Classify", mock.Anything, "x").Return("", "", errors.New("bad gateway"))

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "x"})

	assert.Equal(t, []model.SupervisionVerdict{{Automatable: true}}, res.Verdicts)
	require.Len(t, res.Errs, 1)
	var se *StageError
	require.ErrorAs(t, res.Errs[0], &se)
	assert.Equal(t, StateClassifying, se.State)
	assert.Contains(t, se.Error(), "classifying")
}

func TestClassify_UnknownCategoryIsKeptAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "y").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "y").Return(model.AutoSupervised, nil)
	svc.On("Classify", mock.Anything, "y").Return("其他监管", "t", nil)

	res := NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "y"})

	assert.Equal(t, []model.SupervisionVerdict{{Automatable: true, Category: "其他监管", Type: "t"}}, res.Verdicts)
	assert.Empty(t, res.Errs)
	entries := logs.FilterMessage("unrecognized regulation category").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "其他监管", entries[0].ContextMap()["category"])
}

func TestClassify_KnownCategoryIsNotLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	svc := &mockRuleService{}
	svc.On("CheckAtomicity", mock.Anything, "z").Return(model.AtomicityAtomic, nil)
	svc.On("Identify", mock.Anything, "z").Return(model.AutoSupervised, nil)
	svc.On("Classify", mock.Anything, "z").Return(string(model.QualityRegulation), "t", nil)

	NewRuleClassifier(svc).Classify(context.Background(), model.Clause{Order: "1", Content: "z"})

	assert.Zero(t, logs.FilterMessage("unrecognized regulation category").Len())
}
