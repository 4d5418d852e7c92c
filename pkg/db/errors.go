package db

import "strings"

// IsUniqueViolation reports whether the provided error references a
// unique constraint violation. When constraintName is provided, the
// helper looks for the constraint text in the error message. The sqlite
// message shape is matched too so dev-mode behaves like Postgres.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether the provided error references a
// foreign key constraint violation, covering both Postgres and sqlite
// message shapes.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "violates foreign key constraint") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
