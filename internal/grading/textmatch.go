package grading

import (
	"regexp"
	"strings"
	"sync"
)

// matcher compares a trimmed learner answer against accepted answers.
// Malformed patterns are skipped, never fatal.
type matcher struct {
	cache bool

	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]struct{}
}

func newMatcher(cache bool) *matcher {
	return &matcher{
		cache:    cache,
		compiled: map[string]*regexp.Regexp{},
		invalid:  map[string]struct{}{},
	}
}

// matchAny reports whether answer matches any candidate, tried in order.
// Plain candidates compare whole strings, case-folded unless caseSensitive.
// Regex candidates are searched (unanchored) in the raw trimmed answer.
func (m *matcher) matchAny(answer string, candidates []string, caseSensitive, isRegex bool) bool {
	folded := answer
	if !caseSensitive {
		folded = strings.ToLower(answer)
	}
	for _, c := range candidates {
		if isRegex {
			re, ok := m.compile(c, caseSensitive)
			if ok && re.MatchString(answer) {
				return true
			}
			continue
		}
		target := c
		if !caseSensitive {
			target = strings.ToLower(c)
		}
		if folded == target {
			return true
		}
	}
	return false
}

func (m *matcher) compile(pattern string, caseSensitive bool) (*regexp.Regexp, bool) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	if !m.cache {
		re, err := regexp.Compile(expr)
		return re, err == nil
	}

	m.mu.RLock()
	re, hit := m.compiled[expr]
	_, bad := m.invalid[expr]
	m.mu.RUnlock()
	if hit {
		return re, true
	}
	if bad {
		return nil, false
	}

	re, err := regexp.Compile(expr)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.invalid[expr] = struct{}{}
		return nil, false
	}
	m.compiled[expr] = re
	return re, true
}

// shortAnswerStrategy awards full credit on the first accepted answer matched.
type shortAnswerStrategy struct{ m *matcher }

func (s shortAnswerStrategy) Grade(q Question, points float64, answer any) GradeResult {
	res := GradeResult{PointsPossible: points, Explanation: optional(q.Explanation)}
	text, ok := toText(answer)
	trimmed := strings.TrimSpace(text)
	if !ok || trimmed == "" {
		return res
	}

	cfg := shortAnswerConfig(q.Config)
	if s.m.matchAny(trimmed, cfg.Answers, cfg.CaseSensitive, cfg.IsRegex) {
		res.IsCorrect = true
		res.PointsEarned = points
	}
	return res
}

// fillBlankStrategy splits the points evenly across blanks.
type fillBlankStrategy struct{ m *matcher }

func (s fillBlankStrategy) Grade(q Question, points float64, answer any) GradeResult {
	cfg := fillBlankConfig(q.Config)
	given := toBlankAnswers(answer)

	total := len(cfg.Blanks)
	perBlank := 0.0
	if total > 0 {
		perBlank = points / float64(total)
	}

	correct := 0
	results := make(map[int]bool, total)
	for _, b := range cfg.Blanks {
		results[b.Index] = false
		trimmed := strings.TrimSpace(given[b.Index])
		if trimmed == "" {
			continue
		}
		if s.m.matchAny(trimmed, b.Answers, b.CaseSensitive, b.IsRegex) {
			correct++
			results[b.Index] = true
		}
	}

	return GradeResult{
		IsCorrect:      correct == total,
		PointsEarned:   round2(float64(correct) * perBlank),
		PointsPossible: points,
		Explanation:    optional(q.Explanation),
		Details: map[string]any{
			"correctBlanks": correct,
			"totalBlanks":   total,
			"blankResults":  results,
		},
	}
}
