// Package utils provides shared low-level helpers used by the draftly
// providers: a synchronous JSON POST helper for the completion and search
// HTTP APIs, a generic pointer helper and string truncation utilities.
package utils
