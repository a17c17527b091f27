package tooling

import "regexp"

var (
	wordPattern      = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	systemOptionWord = regexp.MustCompile(`\$[a-zA-Z]*`)
	entitySetWord    = regexp.MustCompile(`/[a-zA-Z]*`)
	selectValue      = regexp.MustCompile(`\$select=.*`)
	inlineCountValue = regexp.MustCompile(`\$inlinecount=.*`)
	formatValue      = regexp.MustCompile(`\$format=.*`)
	noMetadataValue  = regexp.MustCompile(`\$(format|top|skip|count|skiptoken|compute|schemaversion|inlinecount)=.*`)
)

// wordRange finds the match of re on line that touches character, the way an
// editor picks the word under the cursor. end is exclusive.
func wordRange(line string, character int, re *regexp.Regexp) (start, end int, ok bool) {
	for _, m := range re.FindAllStringIndex(line, -1) {
		if m[0] <= character && character <= m[1] {
			return m[0], m[1], true
		}
	}
	return 0, 0, false
}

// matchesAt reports whether some match of re touches character
func matchesAt(line string, character int, re *regexp.Regexp) bool {
	_, _, ok := wordRange(line, character, re)
	return ok
}
