// Package config loads process configuration with spf13/viper, in the
// layered style teradata-labs/loom's cmd/looms/config.go uses: defaults,
// then an optional config file, then environment variables, highest
// priority last.
package config
