package instance

import "os"

// GetID returns the process instance identifier used in startup logs. It
// prefers LUBRIHUB_INSTANCE_ID, then the platform dyno name, then the host.
func GetID() string {
	if id := os.Getenv("LUBRIHUB_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
