package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClause_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Clause
	}{
		{"string order", `{"rule_order":"第三条","rule_content":"应当备案。"}`, Clause{Order: "第三条", Content: "应当备案。"}},
		{"numeric order", `{"rule_order":12,"rule_content":"x"}`, Clause{Order: "12", Content: "x"}},
		{"null order", `{"rule_order":null,"rule_content":"x"}`, Clause{Content: "x"}},
		{"missing order", `{"rule_content":"x"}`, Clause{Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Clause
			require.NoError(t, json.Unmarshal([]byte(tt.input), &c))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestClause_UnmarshalJSON_Invalid(t *testing.T) {
	var c Clause
	err := json.Unmarshal([]byte(`{"rule_order":"a","rule_content":5}`), &c)
	require.Error(t, err)
}

func TestAtomicity(t *testing.T) {
	assert.Equal(t, "0", AtomicityComplex.Cell())
	assert.Equal(t, "1", AtomicityAtomic.Cell())
	assert.Equal(t, "complex", AtomicityComplex.String())
	assert.Equal(t, "atomic", AtomicityAtomic.String())
	assert.Equal(t, "unknown", Atomicity(7).String())
}

func TestSupervisionVerdict_Cell(t *testing.T) {
	assert.Equal(t, "1", SupervisionVerdict{Automatable: true}.Cell())
	assert.Equal(t, "0", SupervisionVerdict{}.Cell())
}

func TestRegulationType_Known(t *testing.T) {
	assert.True(t, ContentRegulation.Known())
	assert.True(t, ProcessRegulation.Known())
	assert.False(t, RegulationType("其他").Known())
}

func TestClauseResult_Rows_Group(t *testing.T) {
	res := ClauseResult{
		Clause:    Clause{Order: "A", Content: "A. 子项一；子项二。"},
		Atomicity: AtomicityComplex,
		Detected:  true,
		Rules:     []AtomicRule{{Text: "子项一"}, {Text: "子项二"}},
		Verdicts: []SupervisionVerdict{
			{Automatable: true, Category: "内容监管", Type: "t1"},
			{},
		},
	}

	rows := res.Rows()
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"A", "A. 子项一；子项二。", "0", "子项一", "1", "内容监管", "t1"}, rows[0].Values())
	assert.Equal(t, []string{"", "", "", "子项二", "0", "", ""}, rows[1].Values())
}

func TestClauseResult_Rows_Undetected(t *testing.T) {
	res := ClauseResult{
		Clause:   Clause{Order: "1", Content: "c"},
		Rules:    []AtomicRule{{Text: "c"}},
		Verdicts: []SupervisionVerdict{{}},
		Errs:     []error{errors.New("detect failed")},
	}

	rows := res.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Atomicity)
	assert.Equal(t, "c", rows[0].AtomText)
}
