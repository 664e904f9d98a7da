// Package overview accumulates per-run usage statistics. The workflow stores
// an [Overview] in the run's context; the client's accounting middleware finds
// it there and records every attempt, including retried ones.
package overview
