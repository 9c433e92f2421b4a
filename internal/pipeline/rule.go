package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
)

// State is a step of the per-clause rule state machine.
type State string

const (
	StateDetecting   State = "detecting"
	StateSplitting   State = "splitting"
	StateIdentifying State = "identifying"
	StateClassifying State = "classifying"
)

// StageError records the state in which a clause or rule degraded.
type StageError struct {
	State State
	Text  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RuleService is the subset of the rule service used by the rule pipeline.
type RuleService interface {
	CheckAtomicity(ctx context.Context, text string) (model.Atomicity, error)
	Split(ctx context.Context, text string) ([]model.AtomicRule, error)
	Identify(ctx context.Context, text string) (model.Supervision, error)
	Classify(ctx context.Context, text string) (category, typ string, err error)
}

// RuleClassifier runs detection, splitting, identification and
// classification for one clause.
type RuleClassifier struct {
	svc RuleService
}

// NewRuleClassifier creates a RuleClassifier backed by svc.
func NewRuleClassifier(svc RuleService) *RuleClassifier {
	return &RuleClassifier{svc: svc}
}

// Classify drives a clause through the rule state machine. Stage failures
// never abort the clause: they degrade it and are recorded in Errs, so the
// result always carries at least one rule and one verdict per rule. A clause
// whose atomicity cannot be detected is kept whole and not supervised.
func (p *RuleClassifier) Classify(ctx context.Context, clause model.Clause) model.ClauseResult {
	log := zap.L().With(zap.String("rule_order", clause.Order))
	res := model.ClauseResult{Clause: clause}
	single := []model.AtomicRule{{Text: clause.Content}}

	atomicity, err := p.svc.CheckAtomicity(ctx, clause.Content)
	switch {
	case err != nil:
		log.Warn("atomicity detection failed", zap.Error(err))
		res.Errs = append(res.Errs, &StageError{State: StateDetecting, Text: clause.Content, Err: err})
		res.Rules = single
		res.Verdicts = []model.SupervisionVerdict{{}}
		return res

	case atomicity == model.AtomicityComplex:
		res.Detected = true
		res.Atomicity = model.AtomicityComplex

		rules, err := p.svc.Split(ctx, clause.Content)
		switch {
		case err != nil:
			log.Warn("split failed", zap.Error(err))
			res.Errs = append(res.Errs, &StageError{State: StateSplitting, Text: clause.Content, Err: err})
			res.Rules = single
		case len(rules) == 0:
			log.Warn("split returned no atomic rules, keeping clause whole")
			res.Rules = single
		default:
			res.Rules = rules
		}

	default:
		res.Detected = true
		res.Atomicity = model.AtomicityAtomic
		res.Rules = single
	}

	res.Verdicts = make([]model.SupervisionVerdict, len(res.Rules))
	for i, rule := range res.Rules {
		verdict, err := p.supervise(ctx, rule.Text)
		if err != nil {
			log.Warn("supervision verdict degraded", zap.Int("atom", i), zap.Error(err))
			res.Errs = append(res.Errs, err)
		}
		res.Verdicts[i] = verdict
	}

	log.Debug("clause classified",
		zap.String("atomicity", res.Atomicity.String()),
		zap.Int("rules", len(res.Rules)),
		zap.Int("errors", len(res.Errs)),
	)
	return res
}

// supervise runs identification and, for auto-supervised rules,
// classification. A classification failure keeps the rule automatable with
// empty category and type.
func (p *RuleClassifier) supervise(ctx context.Context, text string) (model.SupervisionVerdict, error) {
	s, err := p.svc.Identify(ctx, text)
	if err != nil {
		return model.SupervisionVerdict{}, &StageError{State: StateIdentifying, Text: text, Err: err}
	}
	if s != model.AutoSupervised {
		return model.SupervisionVerdict{}, nil
	}

	category, typ, err := p.svc.Classify(ctx, text)
	if err != nil {
		return model.SupervisionVerdict{Automatable: true},
			&StageError{State: StateClassifying, Text: text, Err: err}
	}
	if !model.RegulationType(category).Known() {
		zap.L().Warn("unrecognized regulation category",
			zap.String("category", category),
			zap.String("type", typ),
		)
	}
	return model.SupervisionVerdict{Automatable: true, Category: category, Type: typ}, nil
}
