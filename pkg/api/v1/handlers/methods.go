// Package handlers provides the api3 wire protocol types and HTTP request
// handling for the slate entity API.
package handlers

// RPC method constants for standardized method naming
const (
	// MethodFindOne looks up a single entity by filters.
	MethodFindOne = "find_one"

	// MethodCreate stores a new entity.
	MethodCreate = "create"

	// MethodInfo reports server capabilities.
	MethodInfo = "info"
)

// IsEntityMethod checks if the given method operates on entity records
func IsEntityMethod(method string) bool {
	switch method {
	case MethodFindOne, MethodCreate:
		return true
	default:
		return false
	}
}
