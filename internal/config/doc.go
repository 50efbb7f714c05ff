// Package config loads GradTrack settings from an optional YAML file and the
// environment, and validates every settings block before the service starts.
package config
