package registry

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a resume entity.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusCompleted,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Resume represents one document through its lifecycle. The ID is locally
// generated (timestamp-derived) while processing and replaced by the
// server-issued identifier on success.
type Resume struct {
	ID               string
	OriginalFilename string
	OriginalText     string
	ImprovedText     string
	DateProcessed    time.Time
	Status           Status
	DownloadURL      string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsProcessing reports whether the entity is still in flight.
func (r Resume) IsProcessing() bool {
	return r.Status == StatusProcessing
}

// Deliverable reports whether the entity has a retrieval handle to fetch.
func (r Resume) Deliverable() bool {
	return r.Status == StatusCompleted && strings.TrimSpace(r.DownloadURL) != ""
}

// Fields carries a partial update; nil members are left unchanged.
type Fields struct {
	OriginalText *string
	ImprovedText *string
	Status       *Status
	DownloadURL  *string
	ErrorMessage *string
}
