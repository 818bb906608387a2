package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// ParseFloatOptional parses s as a float. Empty, malformed or non-finite
// input ("NaN", "Inf") yields nil so callers can treat it as "not provided".
func ParseFloatOptional(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseFloatDefault parses s as a float or returns def.
func ParseFloatDefault(s string, def float64) float64 {
	if v := ParseFloatOptional(s); v != nil {
		return *v
	}
	return def
}
