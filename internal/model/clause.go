// Package model defines the data types shared by the rule classification
// pipeline, the report builder and the run ledger.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Clause is one regulatory provision extracted from a source document.
// Order is supplied by the segmentation service and preserved verbatim.
type Clause struct {
	Order   string `json:"rule_order"`
	Content string `json:"rule_content"`
}

// UnmarshalJSON accepts rule_order as either a JSON string or a number.
func (c *Clause) UnmarshalJSON(data []byte) error {
	var raw struct {
		Order   json.RawMessage `json:"rule_order"`
		Content string          `json:"rule_content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode clause")
	}
	c.Content = raw.Content
	c.Order = ""

	order := bytes.TrimSpace(raw.Order)
	switch {
	case len(order) == 0 || bytes.Equal(order, []byte("null")):
	case order[0] == '"':
		if err := json.Unmarshal(order, &c.Order); err != nil {
			return eris.Wrap(err, "model: decode rule_order")
		}
	default:
		c.Order = string(order)
	}
	return nil
}

// Atomicity is the verdict of the atomicity-detection stage. The numeric
// values are the wire and spreadsheet representation.
type Atomicity int

const (
	AtomicityComplex Atomicity = 0
	AtomicityAtomic  Atomicity = 1
)

// Cell returns the spreadsheet representation ("0" or "1").
func (a Atomicity) Cell() string {
	return strconv.Itoa(int(a))
}

func (a Atomicity) String() string {
	switch a {
	case AtomicityComplex:
		return "complex"
	case AtomicityAtomic:
		return "atomic"
	default:
		return "unknown"
	}
}

// Supervision is the identification-stage sentinel.
type Supervision int

const (
	NotAutoSupervised Supervision = 0
	AutoSupervised    Supervision = 1
)

// AtomicRule is an indivisible regulatory statement derived from a Clause.
type AtomicRule struct {
	Text string `json:"atom_rule"`
}

// SupervisionVerdict is the classification outcome for one AtomicRule.
// Category and Type are empty unless Automatable.
type SupervisionVerdict struct {
	Automatable bool   `json:"automatable"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

// Cell returns the Automatable_supervision column value.
func (v SupervisionVerdict) Cell() string {
	if v.Automatable {
		return strconv.Itoa(int(AutoSupervised))
	}
	return strconv.Itoa(int(NotAutoSupervised))
}

// RegulationType is a known supervision category.
type RegulationType string

const (
	ContentRegulation  RegulationType = "内容监管"
	BehaviorRegulation RegulationType = "行为监管"
	QualityRegulation  RegulationType = "质量监管"
	ProcessRegulation  RegulationType = "流程监管"
)

// Known reports whether the category is one of the documented regulation
// types. Unknown categories are still written as returned by the service.
func (t RegulationType) Known() bool {
	switch t {
	case ContentRegulation, BehaviorRegulation, QualityRegulation, ProcessRegulation:
		return true
	}
	return false
}

// ClauseResult is the output of the rule pipeline for one Clause.
type ClauseResult struct {
	Clause    Clause
	Atomicity Atomicity
	// Detected is false when atomicity detection failed; the atom cell is
	// then left blank.
	Detected bool
	Rules    []AtomicRule
	Verdicts []SupervisionVerdict
	// Errs holds the per-stage failures that degraded this clause.
	Errs []error
}

// Rows expands the result into report rows. The first row of a group
// carries the clause order, content and atomicity; the following rows
// leave those three fields blank.
func (r ClauseResult) Rows() []ReportRow {
	rows := make([]ReportRow, len(r.Rules))
	for i, rule := range r.Rules {
		var verdict SupervisionVerdict
		if i < len(r.Verdicts) {
			verdict = r.Verdicts[i]
		}
		row := ReportRow{
			AtomText:    rule.Text,
			Automatable: verdict.Automatable,
			Category:    verdict.Category,
			Type:        verdict.Type,
		}
		if i == 0 {
			row.Order = r.Clause.Order
			row.ClauseText = r.Clause.Content
			if r.Detected {
				row.Atomicity = r.Atomicity.Cell()
			}
		}
		rows[i] = row
	}
	return rows
}
