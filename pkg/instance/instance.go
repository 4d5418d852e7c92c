// Package instance identifies the running process for log fields and
// advisory-lock ownership.
package instance

import "os"

// GetID resolves an identifier for this process: the Heroku dyno name,
// an operator-pinned WORKER_ID, or the host name, in that order.
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
