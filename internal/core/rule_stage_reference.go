package core

import (
	"context"
	"fmt"

	"agritrack/pkg/domain"
)

// NewStageReferenceRule returns the in-transaction rule rejecting stages
// that reference a product absent from the staged state. Orphan stages are
// rejected by policy; the store never accepts dangling history.
func NewStageReferenceRule() domain.Rule {
	return stageReferenceRule{}
}

type stageReferenceRule struct{}

func (stageReferenceRule) Name() string { return "stage_reference" }

func (stageReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityStage || change.Action != domain.ActionCreate {
			continue
		}
		stage, ok := change.After.(domain.ProductStage)
		if !ok {
			continue
		}
		if _, ok := view.FindProduct(stage.ProductID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stage_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("stage %s references missing product %s", stage.ID, stage.ProductID),
				Entity:   domain.EntityStage,
				EntityID: stage.ID,
			})
		}
	}
	return res, nil
}
