package model

import "time"

// RecalcScope selects what a recalculation run covers.
type RecalcScope string

const (
	ScopeAll     RecalcScope = "ALL"
	ScopeMajor   RecalcScope = "MAJOR"
	ScopeStudent RecalcScope = "STUDENT"
)

// RecalcRequest is the admin payload for triggering a recalculation.
type RecalcRequest struct {
	Scope     RecalcScope `json:"scope" binding:"required,oneof=ALL MAJOR STUDENT"`
	MajorID   int         `json:"major_id" binding:"required_if=Scope MAJOR"`
	StudentID int         `json:"student_id" binding:"required_if=Scope STUDENT"`
}

// RecalcJob is the queued form of a recalculation trigger, produced by
// dispute approvals and drained by the recalc worker.
type RecalcJob struct {
	Scope     RecalcScope `json:"scope"`
	MajorID   int         `json:"major_id,omitempty"`
	StudentID int         `json:"student_id,omitempty"`
}

// MajorRecalcReport summarizes one committed (or failed) major run.
type MajorRecalcReport struct {
	MajorID    int                 `json:"major_id"`
	MajorCode  string              `json:"major_code"`
	QuotaCount int                 `json:"quota_count"`
	Ranked     int                 `json:"ranked"`
	Eligible   int                 `json:"eligible"`
	Unrankable []UnrankableStudent `json:"unrankable,omitempty"`
	Changed    bool                `json:"changed"`
	FinishedAt time.Time           `json:"finished_at"`
}
