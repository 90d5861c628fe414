package rotation

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// rotatableCodes are HTTP statuses the provider uses for rate limiting
// and transient overload. Structured codes are preferred over message
// matching; wording changes between provider releases, codes rarely do.
var rotatableCodes = map[int]bool{
	429: true, // rate limit / quota
	500: true, // transient internal error
	503: true, // overloaded
}

// Rotatable reports whether err warrants advancing to the next
// credential and retrying. It first inspects the provider's structured
// error code, then falls back to substring matching against the
// configured fragment list.
func Rotatable(err error, fragments []string) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if rotatableCodes[apiErr.Code] {
			return true
		}
		// Gemini reports an invalid key as 400 INVALID_ARGUMENT; the
		// message check below catches it.
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		if strings.Contains(msg, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
