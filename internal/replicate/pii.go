package replicate

import "regexp"

// Detector flags columns whose sampled values look like personal data.
type Detector interface {
	Detect(profile Profile, records [][]string) []string
}

// RegexDetector matches common PII shapes against sampled column values.
// A column is flagged when at least half of its sampled values match.
type RegexDetector struct {
	patterns map[string]*regexp.Regexp
}

func NewRegexDetector() *RegexDetector {
	return &RegexDetector{
		patterns: map[string]*regexp.Regexp{
			"email": regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
			"phone": regexp.MustCompile(`^\+?[0-9][0-9 ().-]{6,}[0-9]$`),
			"ssn":   regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`),
		},
	}
}

// Detect returns the names of flagged columns in profile order.
func (d *RegexDetector) Detect(profile Profile, records [][]string) []string {
	const sampleLimit = 200

	var flagged []string
	for ci, col := range profile.Columns {
		if col.Kind == "numeric" {
			continue
		}
		matched, sampled := 0, 0
		for _, rec := range records {
			if sampled >= sampleLimit {
				break
			}
			if ci >= len(rec) || rec[ci] == "" {
				continue
			}
			sampled++
			for _, re := range d.patterns {
				if re.MatchString(rec[ci]) {
					matched++
					break
				}
			}
		}
		if sampled > 0 && matched*2 >= sampled {
			flagged = append(flagged, col.Name)
		}
	}
	return flagged
}

// piiKind reports which pattern a value matches, or "".
func (d *RegexDetector) piiKind(value string) string {
	for kind, re := range d.patterns {
		if re.MatchString(value) {
			return kind
		}
	}
	return ""
}
