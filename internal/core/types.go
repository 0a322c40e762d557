package core

import "agritrack/pkg/domain"

type (
	EntityType         = domain.EntityType
	StageType          = domain.StageType
	Date               = domain.Date
	Product            = domain.Product
	ProductStage       = domain.ProductStage
	Identity           = domain.Identity
	IdentityGate       = domain.IdentityGate
	Change             = domain.Change
	Action             = domain.Action
	Severity           = domain.Severity
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	ValidationError    = domain.ValidationError
	NotFoundError      = domain.NotFoundError
	Logger             = domain.Logger
)

const (
	EntityProduct = domain.EntityProduct
	EntityStage   = domain.EntityStage
)

const (
	StageHarvest    = domain.StageHarvest
	StageProcess    = domain.StageProcess
	StageDistribute = domain.StageDistribute
	StageRetail     = domain.StageRetail
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
)
