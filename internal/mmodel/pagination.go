// Package mmodel holds shared value types used across domain entities and
// HTTP payloads, mirroring the teacher's common/mmodel package.
package mmodel

// Pagination encapsulates a paginated list response.
type Pagination struct {
	Items any `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// CursorPage encapsulates a cursor-paginated list response, for lists
// ordered by a cursor rather than an offset. No handler in this module
// returns it; list endpoints take an id cursor directly.
type CursorPage struct {
	Items      any     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}
