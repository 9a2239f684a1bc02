// Package auth checks the static API token shared by the transports
package auth

import (
	"crypto/subtle"
	"strings"
)

// TokenMatches compares a presented credential against the expected token.
// Both the bare token and "Bearer <token>" are accepted; an empty expected
// token never matches.
func TokenMatches(presented, validToken string) bool {
	presented = strings.TrimSpace(presented)
	if len(presented) > 7 && strings.EqualFold(presented[:7], "bearer ") {
		presented = strings.TrimSpace(presented[7:])
	}
	if presented == "" || validToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(validToken)) == 1
}
