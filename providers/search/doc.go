// Package search defines the web-search contract used to gather evidence
// before planning, and the normalization applied to raw hits.
//
// Implementations live in sub-packages (see tavily). Callers should treat
// search as best-effort: a missing provider simply means no evidence.
package search
