package grading

import (
	"encoding/json"
	"math"
	"strconv"
)

// Answer payloads arrive untyped, usually straight out of encoding/json
// (float64, string, []any, map[string]any). The helpers below accept those
// shapes plus the natural Go ones and report false for anything else.

func toIndex(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		if t > math.MaxInt32 {
			return 0, false
		}
		return int(t), true
	case float32:
		return integral(float64(t))
	case float64:
		return integral(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return integral(f)
		}
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// toIndexSet de-duplicates a list or set of option indices. Entries that are
// not indices collapse to -1, which never names an option.
func toIndexSet(v any) map[int]struct{} {
	out := map[int]struct{}{}
	add := func(e any) {
		if idx, ok := toIndex(e); ok {
			out[idx] = struct{}{}
			return
		}
		out[-1] = struct{}{}
	}
	switch t := v.(type) {
	case []int:
		for _, e := range t {
			out[e] = struct{}{}
		}
	case []float64:
		for _, e := range t {
			add(e)
		}
	case []string:
		for _, e := range t {
			add(e)
		}
	case []any:
		for _, e := range t {
			add(e)
		}
	case map[int]struct{}:
		for k := range t {
			out[k] = struct{}{}
		}
	case map[int]bool:
		for k, in := range t {
			if in {
				out[k] = struct{}{}
			}
		}
	}
	return out
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		return parseFloatLoose(t.String())
	case string:
		return parseFloatLoose(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// toBlankAnswers reads a blank-index -> text map. Arrays are positional.
func toBlankAnswers(v any) map[int]string {
	out := map[int]string{}
	put := func(idx int, e any) {
		if s, ok := toText(e); ok {
			out[idx] = s
		}
	}
	switch t := v.(type) {
	case map[int]string:
		return t
	case map[int]any:
		for k, e := range t {
			put(k, e)
		}
	case map[string]string:
		for k, e := range t {
			if idx, err := strconv.Atoi(k); err == nil {
				out[idx] = e
			}
		}
	case map[string]any:
		for k, e := range t {
			if idx, err := strconv.Atoi(k); err == nil {
				put(idx, e)
			}
		}
	case []string:
		for i, e := range t {
			out[i] = e
		}
	case []any:
		for i, e := range t {
			put(i, e)
		}
	}
	return out
}

// toChoiceMap reads an item-text -> choice-id map. Non-string choices are
// dropped so they can never equal a configured answer.
func toChoiceMap(v any) map[string]string {
	switch t := v.(type) {
	case map[string]string:
		return t
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, e := range t {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}
