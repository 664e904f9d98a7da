// Package parse turns raw model text into Go values. Models often wrap JSON
// in markdown fences or surrounding prose, emit almost-valid JSON, or echo
// schema envelopes back instead of data, so parsing goes through fence
// stripping, candidate extraction, JSON repair and envelope unwrapping
// before giving up.
//
// [ParseStructured] is the strict entry point used for structured responses:
// every failure is reported as a [*MalformedOutputError] matching
// [ErrMalformedStructuredOutput]. [ParseStringAs] is the lenient converter
// underneath it, also usable for primitive values.
package parse
