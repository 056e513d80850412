package output

import "time"

// ConfigPort reads configuration values. Typed getters fall back to the
// default when the value is missing or malformed.
type ConfigPort interface {
	Get(key string) string
	MustGet(key string) string
	GetWithDefault(key string, defaultValue string) string
	GetBool(key string, defaultValue bool) bool
	GetInt(key string, defaultValue int) int
	GetFloat(key string, defaultValue float64) float64
	GetDuration(key string, defaultValue time.Duration) time.Duration
}
