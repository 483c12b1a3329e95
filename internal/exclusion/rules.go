// Package exclusion provides file exclusion rules based on regex and
// glob patterns.
package exclusion

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/gremlor/gremlor/internal/configuration"
)

// a rule matches a path either as a regexp or as a glob, whichever the
// pattern compiles as. Glob takes precedence because it's the documented
// format for --paths-to-exclude; a pattern is only tried as a regexp
// when it contains no glob meta characters.
type rule struct {
	re *regexp.Regexp
	gl glob.Glob
}

func (r rule) match(path string) bool {
	if r.gl != nil {
		return r.gl.Match(path)
	}

	return r.re.MatchString(path)
}

// Rules represents a collection of file exclusion patterns.
type Rules []rule

// New creates exclusion rules from the configuration.
//
// NOTE: configuration.Get can't type cast to []string a value from the
// .gremlor file, because viper.Get(k) returns []interface{}.
func New() (Rules, error) {
	var rules Rules

	flagValues := viper.GetStringSlice(configuration.UnleashExcludeFiles)

	for i, s := range flagValues {
		if containsGlobMeta(s) {
			g, err := glob.Compile(s, '/')
			if err != nil {
				return nil, fmt.Errorf("error in paths-to-exclude param value #%d: %w", i, err)
			}

			rules = append(rules, rule{gl: g})

			continue
		}

		r, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("error in paths-to-exclude param value #%d: %w", i, err)
		}

		rules = append(rules, rule{re: r})
	}

	return rules, nil
}

func containsGlobMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}

	return false
}

// IsFileExcluded returns true if the given path matches any of the exclusion rules.
func (r Rules) IsFileExcluded(path string) bool {
	if len(r) == 0 {
		return false
	}

	for _, rl := range r {
		if rl.match(path) {
			return true
		}
	}

	return false
}
