package occ

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	versionPredicates     = make(map[string]*regexp.Regexp)
	versionPredicatesLock sync.Mutex
)

func versionPredicate(versionField string) *regexp.Regexp {
	versionPredicatesLock.Lock()
	defer versionPredicatesLock.Unlock()

	re, ok := versionPredicates[versionField]
	if !ok {
		re = regexp.MustCompile(`^` + regexp.QuoteMeta(versionField) + `\s*=\s*-?\d+$`)
		versionPredicates[versionField] = re
	}
	return re
}

// StripVersionPredicate removes all literal version predicates of the form
// "<versionField> = <integer>" that are terms of the top level conjunction of
// the condition, or of a parenthesized conjunction within it. Groups left
// empty are removed. Predicates within a disjunction are kept, as removing
// them would widen the condition. Parameterized predicates like
// "version = ?" are kept, as their parameters could not be removed.
func StripVersionPredicate(condition, versionField string) string {
	return stripConjunction(condition, versionPredicate(versionField))
}

func stripConjunction(condition string, predicate *regexp.Regexp) string {
	condition = strings.TrimSpace(condition)
	if len(splitTopLevel(condition, "OR")) > 1 {
		return condition
	}

	terms := splitTopLevel(condition, "AND")
	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		switch {
		case term == "":
			continue
		case predicate.MatchString(term):
			continue
		}

		if inner, ok := unwrapGroup(term); ok {
			inner = stripConjunction(inner, predicate)
			if inner == "" {
				continue
			}
			term = "(" + inner + ")"
		}
		kept = append(kept, term)
	}
	return strings.Join(kept, " AND ")
}

// BuildCondition composes the condition of a conditional write: the existing
// condition, without any version predicate of a previous write, and the
// predicate requiring the expected version. The result may be passed back as
// the existing condition of the next write.
func BuildCondition(existing, versionField string, expected int64) string {
	base := StripVersionPredicate(existing, versionField)
	predicate := fmt.Sprintf("%s = %d", versionField, expected)
	switch {
	case base == "":
		return predicate
	case len(splitTopLevel(base, "OR")) > 1:
		// AND binds stronger than OR.
		return "(" + base + ") AND " + predicate
	default:
		return base + " AND " + predicate
	}
}

// splitTopLevel splits the condition at every occurrence of the keyword that
// is outside of parentheses and quotes. The keyword is matched as a whole
// word, ignoring case.
func splitTopLevel(condition, keyword string) []string {
	var (
		parts []string
		start int
		depth int
		quote byte
	)
	for i := 0; i < len(condition); i++ {
		c := condition[i]

		if quote != 0 {
			if c == quote {
				// doubled quotes are escapes
				if i+1 < len(condition) && condition[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && isKeywordAt(condition, i, keyword) {
				parts = append(parts, condition[start:i])
				i += len(keyword) - 1
				start = i + 1
			}
		}
	}
	return append(parts, condition[start:])
}

func isKeywordAt(s string, i int, keyword string) bool {
	end := i + len(keyword)
	if end > len(s) || !strings.EqualFold(s[i:end], keyword) {
		return false
	}
	if i > 0 && isWordChar(s[i-1]) {
		return false
	}
	return end == len(s) || !isWordChar(s[end])
}

func isWordChar(c byte) bool {
	return c == '_' || c == '.' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// unwrapGroup returns the content of term, if the whole term is enclosed in
// one pair of parentheses.
func unwrapGroup(term string) (string, bool) {
	if len(term) < 2 || term[0] != '(' || term[len(term)-1] != ')' {
		return "", false
	}

	depth := 0
	var quote byte
	for i := 0; i < len(term); i++ {
		c := term[i]
		if quote != 0 {
			if c == quote {
				if i+1 < len(term) && term[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(term)-1 {
				// closes before the end, like "(a) AND (b)"
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return term[1 : len(term)-1], true
}
