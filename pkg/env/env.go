package env

import "os"

// Get reads an environment variable, falling back when it is unset or empty.
// Empty counts as unset so that `VAR=` in a dotenv file does not override
// the fallback.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
