package models

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorExists      Operator = "exists"
)

// Condition is a predicate over a dotted path into the instance variables.
type Condition struct {
	Field    string   `json:"field"           yaml:"field"           validate:"required"`
	Operator Operator `json:"operator"        yaml:"operator"        validate:"required,oneof=equals not_equals greater_than less_than contains exists"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}
