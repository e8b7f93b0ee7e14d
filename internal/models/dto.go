package models

import "time"

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ===== SUMMARY DTOs =====

// CourseSummary is the slice of a course embedded in enrollment listings.
type CourseSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Standard  string    `json:"standard"`
	StartDate time.Time `json:"start_date"`
	Format    string    `json:"format,omitempty"`
}

func NewCourseSummary(c *Course) *CourseSummary {
	if c == nil {
		return nil
	}
	return &CourseSummary{
		ID:        c.ID.String(),
		Title:     c.Title,
		Standard:  c.Standard,
		StartDate: c.StartTime(),
		Format:    c.Format,
	}
}
