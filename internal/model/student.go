package model

import "time"

// DataStatus represents the verification state of a student's record.
// Only VERIFIED students participate in ranking and quota allocation.
type DataStatus string

const (
	DataStatusUnverified DataStatus = "UNVERIFIED"
	DataStatusVerified   DataStatus = "VERIFIED"
)

// Student represents a graduating student tracked for SNBP eligibility.
// AverageScore, Rank and IsEligible are derived fields owned by the
// recalculation engine; they are overwritten wholesale on every run.
type Student struct {
	ID        int        `json:"id"`
	NISN      string     `json:"nisn"`
	Name      string     `json:"name"`
	MajorID   int        `json:"major_id"`
	BirthDate time.Time  `json:"birth_date"`
	Status    DataStatus `json:"data_status"`
	// AverageScore is nil until the engine has computed it. A student with
	// no grades keeps nil — never 0, so a missing score is always
	// distinguishable from a genuine zero.
	AverageScore *float64 `json:"average_score"`
	// Rank is the 1-based position within the student's major. Only
	// comparable within the same major and the same recalculation run.
	Rank       *int `json:"rank"`
	IsEligible bool `json:"is_eligible"`
	// ScoreStale marks the average as out of date relative to the latest
	// grade data. Set by grade mutations, cleared by the engine commit.
	ScoreStale bool      `json:"score_stale"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DerivedScore is the engine's per-student commit row: the full replacement
// value of every derived field after one recalculation run.
type DerivedScore struct {
	StudentID    int
	AverageScore *float64
	Rank         *int
	IsEligible   bool
}

// UnrankableStudent describes a student excluded from ranking because their
// average could not be computed. Surfaced to the caller, never dropped
// silently.
type UnrankableStudent struct {
	StudentID int    `json:"student_id"`
	NISN      string `json:"nisn"`
	Reason    string `json:"reason"`
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	NISN      string `json:"nisn" binding:"required,min=4,max=20"`
	Name      string `json:"name" binding:"required,min=2,max=100"`
	MajorID   int    `json:"major_id" binding:"required"`
	BirthDate string `json:"birth_date" binding:"required,datetime=2006-01-02"`
}

// UpdateStudentRequest is the payload for updating a student's identity
// fields. Derived fields are never writable through this request.
type UpdateStudentRequest struct {
	NISN      string `json:"nisn" binding:"required,min=4,max=20"`
	Name      string `json:"name" binding:"required,min=2,max=100"`
	MajorID   int    `json:"major_id" binding:"required"`
	BirthDate string `json:"birth_date" binding:"required,datetime=2006-01-02"`
}

// VerifyStudentRequest sets a student's data status.
type VerifyStudentRequest struct {
	Status DataStatus `json:"data_status" binding:"required,oneof=UNVERIFIED VERIFIED"`
}
