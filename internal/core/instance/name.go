package instance

// =============================================================================
// Name Sanitization
// =============================================================================

// MaxNameLength bounds instance names so derived container and volume names
// stay well under Docker's 63-character identifier limits.
const MaxNameLength = 40

// SanitizeName converts a user-supplied site name to a safe identifier.
//
// The transformation rules are:
//   - Lowercase letters (a-z) are kept as-is
//   - Digits (0-9) are kept as-is
//   - Hyphens (-) are kept as-is
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Spaces and underscores are converted to hyphens
//   - All other characters are removed
//
// This is a pure function with no side effects.
//
// Example:
//
//	SanitizeName("My Blog")        // returns "my-blog"
//	SanitizeName("client_site.2")  // returns "client-site2"
//	SanitizeName("Test!")          // returns "test"
func SanitizeName(name string) string {
	s := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			s += string(r)
		} else if r >= 'A' && r <= 'Z' {
			s += string(r + 32) // convert to lowercase
		} else if r == ' ' || r == '_' {
			s += "-"
		}
		// All other characters are dropped
	}
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}
