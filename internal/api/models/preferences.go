package models

import (
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
)

// Preferences is the response of GET and PUT /v1/preferences.
type Preferences struct {
	// Source is salesperson, tenant or default.
	Source      string                `json:"source"`
	Preferences optimizer.Preferences `json:"preferences"`
	UpdatedAt   *Timestamp            `json:"updated_at,omitempty"`
}

// Preference scopes accepted by PUT /v1/preferences.
const (
	ScopeSalesperson = "salesperson"
	ScopeTenant      = "tenant"
)

// PutPreferencesRequest is the body of PUT /v1/preferences. Fields left out
// keep their currently effective value.
type PutPreferencesRequest struct {
	// Scope is ScopeSalesperson (default) or ScopeTenant.
	Scope       string                 `json:"scope,omitempty"`
	Preferences *preferences.Overrides `json:"preferences"`
}
