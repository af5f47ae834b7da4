// Package config defines application configuration loaded from environment
// variables (GENQUEUE_ prefix) and an optional config file, validated at
// startup.
package config
