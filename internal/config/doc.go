// Package config loads cramdeck settings from defaults, an optional
// config.yaml, an optional .env file and CRAM_* environment variables, then
// validates the result.
package config
