package core

import (
	"context"
	"fmt"

	"agritrack/pkg/domain"
)

// NewStageContentRule returns the in-transaction rule re-checking stage
// content constraints. The service validates before mutating; this rule is
// the backstop for callers that reach the store directly.
func NewStageContentRule() domain.Rule {
	return stageContentRule{}
}

type stageContentRule struct{}

func (stageContentRule) Name() string { return "stage_content" }

func (stageContentRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityStage || change.Action != domain.ActionCreate {
			continue
		}
		stage, ok := change.After.(domain.ProductStage)
		if !ok {
			continue
		}
		if err := domain.ValidateStageData(stage.Data); err != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stage_content",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("stage %s: %v", stage.ID, err),
				Entity:   domain.EntityStage,
				EntityID: stage.ID,
			})
		}
	}
	return res, nil
}
