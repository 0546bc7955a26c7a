package condition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mitchellh/mapstructure"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// DiffRule selects changed paths, optionally narrowed by added content.
type DiffRule struct {
	ID      string `mapstructure:"id"`
	Path    string `mapstructure:"path"`
	Glob    string `mapstructure:"glob"`
	Content string `mapstructure:"content"`

	path    *regexp.Regexp
	glob    glob.Glob
	content *regexp.Regexp
}

func parseRule(key string, raw any) (DiffRule, error) {
	var rule DiffRule
	m, ok := raw.(map[string]any)
	if !ok {
		return rule, domain.NewConfigError(key, "diff rule must be a mapping", raw)
	}
	if err := mapstructure.Decode(m, &rule); err != nil {
		return rule, domain.NewConfigError(key, err.Error(), raw)
	}

	var err error
	if rule.Path != "" {
		if rule.path, err = anchored(rule.Path); err != nil {
			return rule, domain.NewConfigError(key+".path", "invalid regular expression: "+err.Error(), rule.Path)
		}
	}
	if rule.Glob != "" {
		if rule.glob, err = glob.Compile(rule.Glob, '/'); err != nil {
			return rule, domain.NewConfigError(key+".glob", "invalid glob: "+err.Error(), rule.Glob)
		}
	}
	if rule.Content != "" {
		if rule.content, err = anchored(rule.Content); err != nil {
			return rule, domain.NewConfigError(key+".content", "invalid regular expression: "+err.Error(), rule.Content)
		}
	}
	return rule, nil
}

// anchored compiles pattern so that it only matches at the start of the
// input, like Python's re.match.
func anchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}

// selects reports whether the rule names any path at all.
func (r DiffRule) selects() bool {
	return r.path != nil || r.glob != nil
}

func (r DiffRule) matchesPath(p string) bool {
	if r.path != nil && r.path.MatchString(p) {
		return true
	}
	return r.glob != nil && r.glob.Match(p)
}

func (r DiffRule) String() string {
	var parts []string
	if r.Path != "" {
		parts = append(parts, "path="+r.Path)
	}
	if r.Glob != "" {
		parts = append(parts, "glob="+r.Glob)
	}
	if r.Content != "" {
		parts = append(parts, "content="+r.Content)
	}
	if r.ID != "" {
		return fmt.Sprintf("%s(%s)", r.ID, strings.Join(parts, " "))
	}
	return strings.Join(parts, " ")
}

// addedLines returns the lines of newer that do not appear anywhere in older.
func addedLines(newer, older []byte) []string {
	seen := make(map[string]struct{})
	for line := range strings.SplitSeq(string(older), "\n") {
		seen[line] = struct{}{}
	}
	var added []string
	for line := range strings.SplitSeq(string(newer), "\n") {
		if _, ok := seen[line]; !ok {
			added = append(added, line)
			seen[line] = struct{}{}
		}
	}
	return added
}
