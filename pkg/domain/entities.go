// Package domain defines the persistent entities, value types, and rule
// evaluation primitives of the agritrack traceability store.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProduct identifies a registered agricultural product record.
	EntityProduct EntityType = "product"
	// EntityStage identifies a supply-chain stage record.
	EntityStage EntityType = "stage"
)

// StageType classifies a supply-chain stage. The four canonical values below
// cover the tracked lifecycle; any other value is accepted and stored
// verbatim, and Label falls back to a generic description for it.
type StageType string

// Canonical supply-chain stage types.
const (
	StageHarvest    StageType = "harvest"
	StageProcess    StageType = "process"
	StageDistribute StageType = "distribute"
	StageRetail     StageType = "retail"
)

var stageLabels = map[StageType]string{
	StageHarvest:    "Panen",
	StageProcess:    "Pengolahan",
	StageDistribute: "Distribusi",
	StageRetail:     "Penjualan",
}

// Known reports whether the stage type is one of the canonical values.
func (t StageType) Known() bool {
	_, ok := stageLabels[t]
	return ok
}

// Label returns the display label for the stage type, or a generic fallback
// for values outside the canonical set.
func (t StageType) Label() string {
	if label, ok := stageLabels[t]; ok {
		return label
	}
	return "Tahapan Lain"
}

// Date is a calendar date without a time component. It serializes as
// YYYY-MM-DD to stay byte-compatible with the persisted product layout.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Product represents a registered agricultural good. Products are created
// once and never mutated or removed.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FarmLocation string `json:"farmLocation"`
	HarvestDate  Date   `json:"harvestDate"`
	Variety      string `json:"variety"`
}

// ProductStage is an immutable, timestamped event in a product's supply-chain
// history. Stages are append-only and ordered by insertion.
type ProductStage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	StageType StageType `json:"stageType"`
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data"`
	Actor     string    `json:"actor"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions. The store is append-only, so create is the only action a
// transaction can record; the type exists so audit consumers stay explicit.
const (
	ActionCreate Action = "create"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
