// Package config loads the assistant's runtime configuration.
//
// Configuration is environment-first: defaults are overlaid by an optional
// YAML file, a .env file when present, and finally the process environment.
// The primary variables are OPENAI_API_KEY, CAL_API_KEY, CAL_EVENT_TYPE_ID,
// and DEFAULT_USER_EMAIL.
package config
