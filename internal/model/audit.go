package model

import (
	"encoding/json"
	"time"
)

// AuditEvent is the one-way notification handed to the external audit sink
// on every approved rebuttal and every completed recalculation. The engine
// only enqueues it; persistence belongs to the sink.
type AuditEvent struct {
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	At         time.Time       `json:"at"`
}

const (
	AuditActionGradeCorrected    = "grade_corrected"
	AuditActionRebuttalRejected  = "rebuttal_rejected"
	AuditActionMajorRecalculated = "major_recalculated"
)
