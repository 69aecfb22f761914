// Package agent implements the tool-calling conversation loop.
//
// An Agent owns the system prompt, a language model handle, and the tool
// registry. Each user turn is processed strictly sequentially: the model
// is asked for a decision, requested tools are dispatched one by one, and
// the results are fed back until the model produces a plain-text answer
// or the iteration bound is reached. Conversation history is owned by the
// caller; HandleTurn returns the updated copy.
package agent
