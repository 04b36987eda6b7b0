package model

import "time"

// RebuttalStatus is the state of a grade correction request.
// APPROVED and REJECTED are terminal.
type RebuttalStatus string

const (
	RebuttalPending  RebuttalStatus = "PENDING"
	RebuttalApproved RebuttalStatus = "APPROVED"
	RebuttalRejected RebuttalStatus = "REJECTED"
)

// Rebuttal is a formal request to correct a recorded subject grade,
// submitted by a student and resolved by an admin. Approval rewrites the
// grade in place and triggers a recalculation for the student.
type Rebuttal struct {
	ID           string         `json:"id"`
	StudentID    int            `json:"student_id"`
	Semester     int            `json:"semester"`
	Subject      string         `json:"subject"`
	ClaimedValue float64        `json:"claimed_value"`
	EvidenceRef  string         `json:"evidence_ref"`
	Status       RebuttalStatus `json:"status"`
	ReviewerNote string         `json:"reviewer_note"`
	ReviewedBy   string         `json:"reviewed_by"`
	CreatedAt    time.Time      `json:"created_at"`
	ResolvedAt   *time.Time     `json:"resolved_at"`
}

// SubmitRebuttalRequest is the student-facing intake payload.
type SubmitRebuttalRequest struct {
	StudentID    int     `json:"student_id" binding:"required"`
	Semester     int     `json:"semester" binding:"required,gte=1,lte=10"`
	Subject      string  `json:"subject" binding:"required,min=2,max=100"`
	ClaimedValue float64 `json:"claimed_value" binding:"gte=0,lte=100"`
	EvidenceRef  string  `json:"evidence_ref" binding:"required,max=500"`
}

// ResolveRebuttalRequest is the admin review payload.
type ResolveRebuttalRequest struct {
	ReviewerNote string `json:"reviewer_note" binding:"max=500"`
	ReviewedBy   string `json:"reviewed_by" binding:"required,min=2,max=100"`
}
