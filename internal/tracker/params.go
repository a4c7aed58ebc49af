package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"floatwatch/internal/csfloat"
)

const (
	DefaultLimit     = 20
	DefaultTestLimit = 5
)

// CoerceValue turns a user token into a parameter value: a token with a dot
// that parses as a float becomes a float, one that parses as an integer
// becomes an int, anything else stays a string.
func CoerceValue(s string) csfloat.Value {
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return csfloat.Float(f)
		}
		return csfloat.Str(s)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return csfloat.Int(n)
	}
	return csfloat.Str(s)
}

// BuildParams assembles the query for a tracking configuration: def_index,
// paint_index, limit and sort_by defaults, then each key=value token in
// order. Tokens without '=' are ignored. An invalid sort_by fails the whole
// call.
func BuildParams(defIndex, paintIndex int64, extra []string) (csfloat.QueryParams, error) {
	var q csfloat.QueryParams
	q.Set("def_index", csfloat.Int(defIndex))
	q.Set("paint_index", csfloat.Int(paintIndex))
	q.Set("limit", csfloat.Int(DefaultLimit))
	q.Set("sort_by", csfloat.Str(DefaultSort.String()))

	for _, tok := range extra {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		if key == "" {
			return csfloat.QueryParams{}, fmt.Errorf("%w: empty key in %q", ErrInvalidArgument, tok)
		}
		if key == "sort_by" {
			opt, err := ParseSortOption(val)
			if err != nil {
				return csfloat.QueryParams{}, err
			}
			q.Set(key, csfloat.Str(opt.String()))
			continue
		}
		q.Set(key, CoerceValue(val))
	}
	return q, nil
}

// TestParams builds a one-shot diagnostic query. paintIndex 0 omits it and
// limit <= 0 selects DefaultTestLimit.
func TestParams(defIndex, paintIndex, limit int64, sortBy string) (csfloat.QueryParams, error) {
	if sortBy == "" {
		sortBy = DefaultSort.String()
	}
	opt, err := ParseSortOption(sortBy)
	if err != nil {
		return csfloat.QueryParams{}, err
	}
	if limit <= 0 {
		limit = DefaultTestLimit
	}
	var q csfloat.QueryParams
	q.Set("def_index", csfloat.Int(defIndex))
	q.Set("limit", csfloat.Int(limit))
	if paintIndex != 0 {
		q.Set("paint_index", csfloat.Int(paintIndex))
	}
	q.Set("sort_by", csfloat.Str(opt.String()))
	return q, nil
}
