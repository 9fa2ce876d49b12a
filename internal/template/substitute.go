// Package template expands placeholders in scripted payloads just before they are sent.
//
// Supported forms:
//
//	${name}            run variable (run_id, conn_id, step, index)
//	${env:NAME}        environment variable
//	${uuid()}          built-in function, see functions.go
//	$${...}            literal ${...}, not expanded
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"wsprobe/internal/core"
)

// placeholder matches ${...} with no nested braces, or its $${...} escape.
var placeholder = regexp.MustCompile(`\$?\$\{([^}]+)\}`)

// Substitute expands every placeholder in text.
// Unresolvable placeholders are left in place and reported together as one joined error.
// vars may be nil when only env and function placeholders are expected.
func Substitute(text string, vars core.Variables) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	out := placeholder.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, "$$") {
			return match[1:]
		}
		expr := strings.TrimSpace(match[2 : len(match)-1])

		if envName, ok := strings.CutPrefix(expr, "env:"); ok {
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		if result, isFunc, err := evalFunction(expr); isFunc {
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return result
		}

		if vars != nil {
			if val, ok := vars.Get(expr); ok {
				return fmt.Sprint(val)
			}
		}
		errs = append(errs, fmt.Errorf("variable %q not found", expr))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}
