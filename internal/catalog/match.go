package catalog

import (
	"strings"
	"unicode"

	"mediaid-gateway/internal/models"
)

const noMatch = -1

// Match tiers, best first.
const (
	tierName = iota
	tierGenericName
	tierSymptom
	tierUse
)

// symptomPatterns maps canonical symptom keywords to phrases that indicate them.
var symptomPatterns = []struct {
	symptom  string
	patterns []string
}{
	{"headache", []string{"headache", "head ache", "head pain", "migraine"}},
	{"fever", []string{"fever", "temperature", "hot", "burning up"}},
	{"cough", []string{"cough", "coughing", "throat", "chest congestion"}},
	{"pain", []string{"pain", "ache", "hurt", "sore"}},
	{"diarrhea", []string{"diarrhea", "loose stool", "stomach runs", "loose motion"}},
	{"allergies", []string{"allergy", "allergic", "itching", "runny nose", "sneezing"}},
	{"stomach", []string{"stomach", "tummy", "belly", "indigestion", "heartburn"}},
	{"muscle pain", []string{"muscle", "body ache", "joint pain", "stiff"}},
}

// DetectSymptoms returns the canonical symptoms mentioned in text, in table order.
// Patterns match as plain substrings, so "stomachache" reports both stomach and pain.
func DetectSymptoms(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, entry := range symptomPatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				found = append(found, entry.symptom)
				break
			}
		}
	}
	return found
}

// rank reports the best tier at which q (already lower-cased) matches d, or noMatch.
func rank(d models.DrugRecord, q string) int {
	switch {
	case strings.Contains(strings.ToLower(d.Name), q):
		return tierName
	case strings.Contains(strings.ToLower(d.GenericName), q):
		return tierGenericName
	case anyContains(d.Symptoms, q):
		return tierSymptom
	case anyContains(d.Uses, q):
		return tierUse
	default:
		return noMatch
	}
}

// matchKeywords returns the records relevant to free text: drugs named in the
// text and drugs treating a symptom the text mentions. Catalog order is kept.
func matchKeywords(records []models.DrugRecord, text string) []models.DrugRecord {
	out := []models.DrugRecord{}
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return out
	}

	detected := make(map[string]struct{})
	for _, s := range DetectSymptoms(lower) {
		detected[s] = struct{}{}
	}

	for _, d := range records {
		if mentionsDrug(d, lower, detected) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func mentionsDrug(d models.DrugRecord, lower string, detected map[string]struct{}) bool {
	if containsTerm(lower, strings.ToLower(d.Name)) || containsTerm(lower, strings.ToLower(d.GenericName)) {
		return true
	}
	for _, s := range d.Symptoms {
		s = strings.ToLower(s)
		if _, ok := detected[s]; ok {
			return true
		}
		if containsTerm(lower, s) {
			return true
		}
	}
	return false
}

func hasSymptom(d models.DrugRecord, symptom string) bool {
	for _, s := range d.Symptoms {
		if strings.EqualFold(s, symptom) {
			return true
		}
	}
	return false
}

func anyContains(values []string, q string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// containsTerm reports whether term occurs in text as a whole word or phrase.
// A trailing "s" or "es" is tolerated so plurals match. Drug names and catalog
// symptom terms use it; the symptom pattern table does not.
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(text[i-1])
}

func boundaryAfter(text string, i int) bool {
	for _, suffix := range []string{"", "s", "es"} {
		j := i + len(suffix)
		if j > len(text) || text[i:j] != suffix {
			continue
		}
		if j == len(text) || !isWordByte(text[j]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 0x80 || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}
