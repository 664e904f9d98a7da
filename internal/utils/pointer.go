package utils

// Ptr returns a pointer to v. It avoids a temporary variable when the
// address of a literal or computed value is needed, e.g. optional request
// fields.
//
// Example:
//
//	request.MaxTokens = utils.Ptr(4096)
func Ptr[T any](v T) *T {
	return &v
}
