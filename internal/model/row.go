package model

// Spreadsheet column names.
const (
	ColRuleOrder     = "rule_order"
	ColRuleContent   = "rule_content"
	ColAtom          = "atom"
	ColAtomRule      = "atom_rule_content"
	ColAutomatable   = "Automatable_supervision"
	ColCategory      = "category"
	ColType          = "type"
	ColCommonElement = "common_element"
	ColCDSRLResult   = "CDSRL_result"
)

// ReportHeader is the fixed header row written by the report builder.
var ReportHeader = []string{
	ColRuleOrder, ColRuleContent, ColAtom, ColAtomRule, ColAutomatable, ColCategory, ColType,
}

// EnrichmentHeader lists the columns appended by the enrichment pass.
var EnrichmentHeader = []string{ColCommonElement, ColCDSRLResult}

// GroupColumns is the number of leading columns merged across a clause group.
const GroupColumns = 3

// ReportRow is one spreadsheet data row. CommonElement and CDSRLResult hold
// JSON text and are nil until the enrichment pass fills them.
type ReportRow struct {
	// Index is the 0-based data row position (header excluded).
	Index         int
	Order         string
	ClauseText    string
	Atomicity     string
	AtomText      string
	Automatable   bool
	Category      string
	Type          string
	CommonElement *string
	CDSRLResult   *string
}

// Values returns the cells for the fixed report columns.
func (r ReportRow) Values() []string {
	return []string{
		r.Order,
		r.ClauseText,
		r.Atomicity,
		r.AtomText,
		SupervisionVerdict{Automatable: r.Automatable}.Cell(),
		r.Category,
		r.Type,
	}
}
