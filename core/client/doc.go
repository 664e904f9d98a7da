// Package client is the resilient call layer between the workflow stages and
// a completion provider. A [Client] threads every request through a
// middleware chain (retry, timeout, logging, observability), counts attempts
// and tokens in process-wide counters, and records per-run usage in the
// [overview.Overview] carried by the context.
//
// Use [Client.Complete] for free text and [CompleteStructured] for responses
// decoded into a Go type.
package client
