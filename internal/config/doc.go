// Package config loads, normalizes, and validates ytscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as GEMINI_API_KEY, PROMPT_FILE, and PROMPT_NAME. The Config
// type is the single typed settings object built once at process start and
// passed to every component; nothing else reads the process environment.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
