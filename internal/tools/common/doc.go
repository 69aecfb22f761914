// Package common provides shared utilities for MCP tool implementations.
// It contains the instrumentation wrapper and argument helpers used across
// the tool packages to avoid code duplication and ensure consistent behavior.
package common
