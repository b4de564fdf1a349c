package kasane

// MaskFunc hides a sensitive value for display.
//
// Example:
//
//	func maskHandler(value string) string {
//	    return "<redacted>"
//	}
type MaskFunc func(value string) string

// DefaultMaskString replaces non-empty values masked by MaskAll.
const DefaultMaskString = "********"

// MaskAll replaces any non-empty value with DefaultMaskString.
// The empty string stays empty so that "set but empty" remains visible.
func MaskAll(value string) string {
	if value == "" {
		return ""
	}
	return DefaultMaskString
}

// MaskKeepSuffix returns a MaskFunc that reveals the last n characters of
// values long enough that doing so still hides most of them (at least 3n).
// Shorter values are masked entirely.
//
// Example:
//
//	kasane.MaskKeepSuffix(4)("AIzaSyD-TEST-1234") // "********1234"
func MaskKeepSuffix(n int) MaskFunc {
	return func(value string) string {
		if value == "" {
			return ""
		}
		runes := []rune(value)
		if n <= 0 || len(runes) < 3*n {
			return DefaultMaskString
		}
		return DefaultMaskString + string(runes[len(runes)-n:])
	}
}

// Reveal is a MaskFunc that returns values unchanged.
func Reveal(value string) string {
	return value
}
