package models

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is a trigger-to-response rule. A reaction belongs to exactly one
// scope: a single tenant (TenantID set) or every tenant (TenantID = uuid.Nil).
// Scope never changes after creation.
//
// Trigger may contain context tokens (%user%, %channel%, %mention%) that are
// resolved against the inbound message before comparison. Response may contain
// the same tokens plus %target%, which captures the text after the trigger.
type Reaction struct {
	ID                int64     `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	Trigger           string    `json:"trigger"`
	Response          string    `json:"response"`
	ContainsAnywhere  bool      `json:"contains_anywhere"`
	DmResponse        bool      `json:"dm_response"`
	AutoDeleteTrigger bool      `json:"auto_delete_trigger"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsGlobal reports whether the reaction applies across all tenants.
func (r Reaction) IsGlobal() bool {
	return r.TenantID == uuid.Nil
}

// Admin is an operator account for the management API. Admins authenticate
// with email + password and receive a JWT for subsequent requests.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
