package utils

// DisplayEllipsis is appended to every string shortened by TrimForDisplay.
const DisplayEllipsis = ".."

// TrimForDisplay returns the first maxLen characters of s followed by
// DisplayEllipsis. The ellipsis is always appended, also when s is shorter
// than maxLen.
func TrimForDisplay(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}

	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes) + DisplayEllipsis
}
