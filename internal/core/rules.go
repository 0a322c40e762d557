package core

import "agritrack/pkg/domain"

type (
	Rule        = domain.Rule
	RulesEngine = domain.RulesEngine
	RuleView    = domain.RuleView
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// stage content constraints and product referential integrity.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewStageContentRule())
	engine.Register(NewStageReferenceRule())
	return engine
}
