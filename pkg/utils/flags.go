package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// NormalizeBooleanFlags rewrites args so that "--raw false" becomes "--raw=false" for the
// named boolean flags. pflag treats a bare boolean flag as true and would otherwise read
// "false" as a positional argument.
//
// Pass os.Args and the boolean flag names. The returned slice should be assigned back to os.Args.
func NormalizeBooleanFlags(args []string, booleanFlags ...string) []string {
	if len(args) <= 2 {
		return args
	}

	known := make(map[string]struct{}, len(booleanFlags))
	for _, name := range booleanFlags {
		known[name] = struct{}{}
	}

	normalized := make([]string, 0, len(args))
	normalized = append(normalized, args[0])

	for i := 1; i < len(args); i++ {
		current := args[i]
		// Stop normalizing after end-of-flags terminator
		if current == "--" {
			normalized = append(normalized, args[i:]...)
			break
		}

		if strings.HasPrefix(current, "-") && !strings.Contains(current, "=") && i+1 < len(args) {
			name := strings.TrimLeft(current, "-")
			if _, ok := known[name]; ok {
				next := strings.ToLower(args[i+1])
				if next == "true" || next == "false" {
					dashes := current[:len(current)-len(name)]
					normalized = append(normalized, fmt.Sprintf("%s%s=%s", dashes, name, next))
					i++
					continue
				}
			}
		}

		normalized = append(normalized, current)
	}

	return normalized
}

// MultiValueHeader implements pflag.Value to collect repeated --header Name=Value entries.
type MultiValueHeader struct {
	Headers map[string]string
}

var _ pflag.Value = (*MultiValueHeader)(nil)

func (m *MultiValueHeader) String() string {
	if len(m.Headers) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.Headers))
	for name := range m.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (m *MultiValueHeader) Type() string { return "header" }

func (m *MultiValueHeader) Set(val string) error {
	if m.Headers == nil {
		m.Headers = map[string]string{}
	}
	// split on first '='; no '=' means a name with an empty value
	name, value, _ := strings.Cut(val, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("header name cannot be empty: %q", val)
	}
	m.Headers[name] = value
	return nil
}
