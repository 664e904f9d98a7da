// Package ai defines the provider-agnostic types and interfaces used to talk
// to a text-completion service. Provider implementations map these types to
// their own wire format, keeping the workflow code decoupled from any single
// vendor.
//
// Request data flows through [ChatRequest] and responses come back as
// [ChatResponse]. Failures reported by the remote service are surfaced as
// [*ProviderError], which carries the HTTP status so retry policies can tell
// transient failures from permanent ones.
package ai
