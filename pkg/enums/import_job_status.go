package enums

import "fmt"

// ImportJobStatus tracks a catalog import job through the submit/poll cycle.
type ImportJobStatus string

const (
	ImportJobStatusQueued    ImportJobStatus = "queued"
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusSucceeded ImportJobStatus = "succeeded"
	ImportJobStatusFailed    ImportJobStatus = "failed"
)

var validImportJobStatuses = []ImportJobStatus{
	ImportJobStatusQueued,
	ImportJobStatusRunning,
	ImportJobStatusSucceeded,
	ImportJobStatusFailed,
}

// String implements fmt.Stringer.
func (i ImportJobStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ImportJobStatus.
func (i ImportJobStatus) IsValid() bool {
	for _, candidate := range validImportJobStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// Terminal reports whether the job can no longer change state.
func (i ImportJobStatus) Terminal() bool {
	return i == ImportJobStatusSucceeded || i == ImportJobStatusFailed
}

// ParseImportJobStatus converts raw input into an ImportJobStatus.
func ParseImportJobStatus(value string) (ImportJobStatus, error) {
	for _, candidate := range validImportJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid import job status %q", value)
}
