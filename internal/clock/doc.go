// Package clock supplies the current-time source behind the assistant's
// datetime tool.
//
// The model has no notion of "now", so every scheduling conversation
// starts by reading a Stamp: the current UTC instant rendered with
// explicit guidance for turning relative dates ("tomorrow", "next week")
// into future booking slots. The Source interface exists so tests can
// pin the instant instead of depending on the wall clock.
package clock
