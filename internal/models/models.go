// Package models holds the gorm models of the invoice schema.
package models

import "time"

// DateOnly truncates t to its calendar date in UTC, the precision of Invoice.Date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// All lists the models in dependency order, for AutoMigrate.
func All() []any {
	return []any{&Invoice{}, &Transaction{}}
}
