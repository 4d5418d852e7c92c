package enums

import "fmt"

// OutboxStatus maps to the outbox_status enum in Postgres.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusPublished,
	OutboxStatusFailed,
}

// String implements fmt.Stringer.
func (o OutboxStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxStatus.
func (o OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxStatus converts raw input into an OutboxStatus.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	for _, candidate := range validOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox status %q", value)
}
