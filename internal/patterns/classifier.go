package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheets/internal/sheet"
)

// FormatTable maps format keys to spreadsheet number-format codes.
type FormatTable map[FormatKey]string

// DefaultFormats is the table used when none is configured.
var DefaultFormats = FormatTable{
	FormatPlainNumericText: "@",
	FormatDate:             "yyyy-mm-dd",
	FormatCurrency:         "[$$-80A]#,##0.00;[RED]-[$$-80A]#,##0.00",
}

// Match is the outcome of classifying a value.
type Match struct {
	Type   SemanticType
	Format FormatKey
}

// IsDate reports whether the value should be written as a serial date.
func (m Match) IsDate() bool {
	return m.Format == FormatDate
}

// Classifier assigns a semantic type to string values by testing the rules
// of a catalog in order. It is safe for concurrent use once built.
type Classifier struct {
	rules   []Rule
	formats FormatTable
}

// New builds a classifier over rules. A nil formats table selects
// DefaultFormats. Rules whose format key is missing from the table are
// rejected.
func New(rules []Rule, formats FormatTable) (*Classifier, error) {
	if formats == nil {
		formats = DefaultFormats
	}

	for i, r := range rules {
		if r.Expression == nil {
			return nil, sheet.Errorf(sheet.ConfigError, r.Pattern, "rule %d (%s) is not compiled", i, r.Pattern)
		}
		if r.Format != "" {
			if _, ok := formats[r.Format]; !ok {
				return nil, sheet.Errorf(sheet.ConfigError, r.Pattern, "rule %d (%s) uses unknown format %q", i, r.Pattern, r.Format)
			}
		}
	}

	return &Classifier{
		rules:   append([]Rule(nil), rules...),
		formats: formats,
	}, nil
}

// Default returns a classifier over the bundled catalog and DefaultFormats.
func Default() *Classifier {
	c, err := New(DefaultRules(), nil)
	if err != nil {
		panic(fmt.Sprintf("patterns: bundled catalog: %v", err))
	}
	return c
}

// Classify returns the first rule matching value. The second result is false
// when no rule matches.
func (c *Classifier) Classify(value string) (Match, bool) {
	for _, r := range c.rules {
		if r.Expression.MatchString(value) {
			return Match{Type: r.Type, Format: r.Format}, true
		}
	}
	return Match{}, false
}

// FormatCode returns the number-format code for key.
func (c *Classifier) FormatCode(key FormatKey) (string, bool) {
	if key == "" {
		return "", false
	}
	code, ok := c.formats[key]
	return code, ok
}

// Rules returns a copy of the catalog in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Formats returns the format keys the classifier knows, sorted.
func (c *Classifier) Formats() []FormatKey {
	keys := make([]FormatKey, 0, len(c.formats))
	for k := range c.formats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Describe renders the catalog one rule per line, for diagnostics.
func (c *Classifier) Describe() string {
	var b strings.Builder
	for i, r := range c.rules {
		format := string(r.Format)
		if format == "" {
			format = "-"
		}
		fmt.Fprintf(&b, "%2d  %-12s %-12s %s\n", i+1, r.Type, format, r.Pattern)
	}
	return b.String()
}
