package grading

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numericStrategy accepts a number or numeric string within the configured
// absolute tolerance of the target. The bound is inclusive.
//
//	config: {"answer": 10, "tolerance": 1}  // 9..11 are correct
type numericStrategy struct{}

func (numericStrategy) Grade(q Question, points float64, answer any) GradeResult {
	res := GradeResult{PointsPossible: points, Explanation: optional(q.Explanation)}
	v, ok := toNumber(answer)
	if !ok {
		return res
	}
	cfg := numericConfig(q.Config)
	if cfg.Answer == nil {
		return res
	}
	tol := cfg.Tolerance
	if math.IsNaN(tol) {
		tol = 0
	}
	if math.Abs(v-*cfg.Answer) <= tol {
		res.IsCorrect = true
		res.PointsEarned = points
	}
	return res
}

var leadingFloat = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// parseFloatLoose reads the longest numeric prefix after leading whitespace,
// so "11 cm" parses as 11 and "cm" does not parse.
func parseFloatLoose(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return 0, false
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}
