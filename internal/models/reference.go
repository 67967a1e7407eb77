// Package models defines the data structures for the plan eligibility engine.
package models

// ReferenceItem is a canonical health condition or medication name offered as a form option.
type ReferenceItem struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category,omitempty" db:"category"`
}
