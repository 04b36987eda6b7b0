package model

import "time"

// Grade is one subject score in one semester. The (student, semester,
// subject) triple is unique; re-imports and approved rebuttals update the
// value in place. Every mutation marks the owning student's average stale.
type Grade struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	Semester  int       `json:"semester"`
	Subject   string    `json:"subject"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertGradeRequest is the payload for an admin grade correction.
type UpsertGradeRequest struct {
	Semester int     `json:"semester" binding:"required,gte=1,lte=10"`
	Subject  string  `json:"subject" binding:"required,min=2,max=100"`
	Value    float64 `json:"value" binding:"gte=0,lte=100"`
}

// ImportGradeRow is one grade inside a bulk import row. The import
// collaborator has already validated the file format; the engine only
// requires semester attribution and a numeric 0–100 value.
type ImportGradeRow struct {
	Semester int     `json:"semester" binding:"required,gte=1,lte=10"`
	Subject  string  `json:"subject" binding:"required,min=2,max=100"`
	Value    float64 `json:"value" binding:"gte=0,lte=100"`
}

// ImportStudentRow is one student row in a bulk import payload.
type ImportStudentRow struct {
	NISN      string           `json:"nisn" binding:"required,min=4,max=20"`
	Name      string           `json:"name" binding:"required,min=2,max=100"`
	MajorCode string           `json:"major_code" binding:"required"`
	BirthDate string           `json:"birth_date" binding:"required,datetime=2006-01-02"`
	Grades    []ImportGradeRow `json:"grades" binding:"dive"`
}

// ImportRequest is the bulk ingestion payload.
type ImportRequest struct {
	Rows []ImportStudentRow `json:"rows" binding:"required,min=1,dive"`
}
