package template

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type templateFunc func(args string) (string, error)

var funcRegistry = map[string]templateFunc{
	"uuid":          noArgs("uuid", func() string { return uuid.NewString() }),
	"timestamp":     noArgs("timestamp", func() string { return strconv.FormatInt(time.Now().Unix(), 10) }),
	"timestamp_ms":  noArgs("timestamp_ms", func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) }),
	"random":        fnRandom,
	"random_string": fnRandomString,
	"date":          fnDate,
}

// evalFunction evaluates expr when it looks like a call to a registered function.
// isFunc is false for anything else, so the caller falls through to variable lookup.
func evalFunction(expr string) (result string, isFunc bool, err error) {
	open := strings.Index(expr, "(")
	if open == -1 || !strings.HasSuffix(expr, ")") {
		return "", false, nil
	}

	name := expr[:open]
	fn, ok := funcRegistry[name]
	if !ok {
		return "", true, fmt.Errorf("unknown function %q", name)
	}

	result, err = fn(expr[open+1 : len(expr)-1])
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", name, err)
	}
	return result, true, nil
}

func noArgs(name string, f func() string) templateFunc {
	return func(args string) (string, error) {
		if strings.TrimSpace(args) != "" {
			return "", fmt.Errorf("%s() takes no arguments", name)
		}
		return f(), nil
	}
}

// fnRandom returns an integer in [min, max]. Usage: random(1,100)
func fnRandom(args string) (string, error) {
	lo, hi, found := strings.Cut(args, ",")
	if !found || strings.Contains(hi, ",") {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	min, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}
	max, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}
	if min > max {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", min, max)
	}

	// The span is computed in uint64 so random(math.MinInt64, math.MaxInt64) cannot overflow.
	span := uint64(max) - uint64(min) + 1
	var n uint64
	if span == 0 {
		n = rand.Uint64()
	} else {
		n = rand.Uint64N(span)
	}
	return strconv.FormatInt(int64(uint64(min)+n), 10), nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// fnRandomString returns n random alphanumeric characters, 0 < n <= 65536.
// Useful for sizing frames. Usage: random_string(1024)
func fnRandomString(args string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", fmt.Errorf("invalid length: %w", err)
	}
	if n <= 0 || n > 65536 {
		return "", fmt.Errorf("length must be in 1..65536, got %d", n)
	}

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphanumeric[rand.IntN(len(alphanumeric))])
	}
	return b.String(), nil
}

// fnDate formats the current time with a Go layout, RFC 3339 when empty.
// Usage: date(2006-01-02)
func fnDate(args string) (string, error) {
	layout := strings.TrimSpace(args)
	if layout == "" {
		layout = time.RFC3339
	}
	return time.Now().Format(layout), nil
}
