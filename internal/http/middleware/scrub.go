package middleware

import "regexp"

// scrubber replaces identifiers that federation traffic carries in plain
// sight (acct handles, chat addresses, onion hosts) with typed placeholders.
type scrubber struct {
	rules []scrubRule
}

type scrubRule struct {
	re   *regexp.Regexp
	with string
}

// Rules run in order. UUIDs go before phone numbers so the digit runs of an
// id are not taken for a phone number.
var defaultScrubber = &scrubber{rules: []scrubRule{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z2-7]{16,56}\.onion\b`), "[REDACTED:onion]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`(?i)(?:@|%40)[a-z0-9._=\-/]+(?::|%3a)[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:matrix]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}}

func (s *scrubber) scrub(in string) string {
	if in == "" {
		return in
	}
	for _, r := range s.rules {
		in = r.re.ReplaceAllString(in, r.with)
	}
	return in
}
