package shellprofile

import (
	"regexp"
	"strings"
)

// Markers returns the comment lines that open and close the block for programID.
func Markers(programID string) (start, end string) {
	id := "epic-postinstall added this for " + programID
	return "# " + id + " START", "# " + id + " END"
}

// Block wraps lines between the markers of programID.
func Block(programID string, lines []string) string {
	start, end := Markers(programID)
	return start + "\n" + strings.Join(lines, "\n") + "\n" + end
}

// HasBlock reports whether content already holds a block for programID.
func HasBlock(content, programID string) bool {
	start, _ := Markers(programID)
	return strings.Contains(content, start)
}

// StripBlocks removes every block for programID from content together with
// one surrounding newline on each side, undoing what apply appended.
func StripBlocks(content, programID string) (string, bool) {
	if !HasBlock(content, programID) {
		return content, false
	}
	start, end := Markers(programID)
	re := regexp.MustCompile(`(?s)\n?` + regexp.QuoteMeta(start) + `.*?` + regexp.QuoteMeta(end) + `\n?`)
	out := re.ReplaceAllLiteralString(content, "")
	return out, out != content
}
