package extract

import "regexp"

// FindCard returns the last four digits of the card or account in text.
// Masked forms ("****1234", "XXXX1234") are tried first, then labelled
// patterns; DefaultCardLabels is used when none are given. Empty when
// nothing matches.
func FindCard(text string, labeled ...*regexp.Regexp) string {
	if len(labeled) == 0 {
		labeled = DefaultCardLabels
	}
	for _, re := range [...]*regexp.Regexp{CardAsterisks, CardXMask} {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	for _, re := range labeled {
		if m := re.FindStringSubmatch(text); m != nil {
			return firstGroup(m)
		}
	}
	return ""
}
