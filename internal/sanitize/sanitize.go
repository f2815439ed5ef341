// Package sanitize cleans raw streamed text before it enters session state.
//
// Pure functions, no state, no locks, hot-path safe.
package sanitize

import "regexp"

var (
	// CSI sequences: ESC [ params intermediates final (colors, cursor moves).
	ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	// OSC sequences: ESC ] ... terminated by BEL or ST (window titles, links).
	ansiOSC = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	// Remaining two-byte escapes: ESC + single final byte.
	ansiEsc = regexp.MustCompile(`\x1b[@-_]`)

	// A trailing '<' with no closing '>' after it: an opening tag cut off
	// by the stream.
	trailingTag = regexp.MustCompile(`<[^>]*$`)
)

// StripANSI removes ANSI/terminal control escape sequences.
func StripANSI(text string) string {
	if text == "" {
		return text
	}
	text = ansiOSC.ReplaceAllString(text, "")
	text = ansiCSI.ReplaceAllString(text, "")
	return ansiEsc.ReplaceAllString(text, "")
}

// StripTrailingIncompleteTag removes a trailing partial opening tag
// (e.g. a truncated "<tag" with no closing '>'), leaving complete tags
// untouched. Idempotent.
func StripTrailingIncompleteTag(text string) string {
	if text == "" {
		return text
	}
	return trailingTag.ReplaceAllString(text, "")
}
