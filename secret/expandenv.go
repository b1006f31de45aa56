package secret

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// ErrMissingEnv is returned when a required variable is unset.
var ErrMissingEnv = errors.New("secret: missing required environment variables")

// ExpandEnvStrict expands environment variables in s.
//
//   - ${VAR} must be set; every unset name is reported in one error.
//   - ${VAR:-fallback} uses fallback when VAR is unset or empty.
//   - $VAR expands to the empty string when unset.
//   - $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	const dollar = "\x00TARIFF_SECRET_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	out := os.Expand(s, func(token string) string {
		name, fallback, hasFallback := strings.Cut(token, ":-")
		v, ok := os.LookupEnv(name)
		switch {
		case hasFallback && v == "":
			return fallback
		case ok:
			return v
		case isBraced(s, token):
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
		return ""
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return strings.ReplaceAll(out, dollar, "$"), nil
}

// isBraced reports whether token appeared as ${token} in s.
func isBraced(s, token string) bool {
	return strings.Contains(s, "${"+token+"}")
}
