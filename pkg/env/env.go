package env

import "os"

// Get reads key from the process environment. An unset or empty variable
// yields the fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
