package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnknownSpeaker is returned when no speaker can be derived from a title.
const UnknownSpeaker = "अज्ञात"

// speakerPatterns match honorific forms used in Jain discourse titles. The
// last capture group holds the speaker name. Patterns are tried in order.
var speakerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(पूज्य\s+)?(मुनि|आचार्य|उपाध्याय)\s+श्री\s+([^|,\-]+?)\s+महाराज`),
	regexp.MustCompile(`(पूज्य\s+)?श्री\s+([^|,\-]+?)\s+महाराज\s+जी`),
	regexp.MustCompile(`(पूज्य\s+)?मुनि\s+श्री\s+([^|,\-]+)`),
}

// ExtractSpeaker returns the speaker named in a Hindi video title, or
// UnknownSpeaker.
func ExtractSpeaker(title string) string {
	title = norm.NFKC.String(title)
	for _, pattern := range speakerPatterns {
		match := pattern.FindStringSubmatch(title)
		if match == nil {
			continue
		}
		if name := strings.TrimSpace(match[len(match)-1]); name != "" {
			return name
		}
	}
	return UnknownSpeaker
}
