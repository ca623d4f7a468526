// Package patterns loads the ordered regular-expression catalog that decides
// the semantic type of a cell value and classifies values against it.
//
// The catalog document has a single "regex" list. Each entry names an
// expression ("expresion"), a semantic type label ("tipo_dato") and the
// export format key ("xls"), which is either a key of a FormatTable or false:
//
//	{"regex": [
//	    {"expresion": "/^[0-9]{4}-[0-9]{2}-[0-9]{2}$/", "tipo_dato": "fecha", "xls": "fecha"},
//	    {"expresion": "/^-?[0-9]+$/", "tipo_dato": "entero", "xls": false}
//	]}
//
// Order matters: the first matching rule wins.
package patterns

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"gopkg.in/yaml.v3"
)

//go:embed regex.json
var defaultCatalog []byte

// SemanticType is the inferred meaning of a cell value.
type SemanticType string

// Well-known semantic types. Catalogs may use other labels; they are carried
// through unchanged.
const (
	TypeDate             SemanticType = "fecha"
	TypeCurrency         SemanticType = "moneda"
	TypePlainNumericText SemanticType = "txt_numero"
)

// FormatKey selects an export number format from a FormatTable.
// The empty key means the rule carries no export format.
type FormatKey string

const (
	FormatDate             FormatKey = "fecha"
	FormatCurrency         FormatKey = "moneda"
	FormatPlainNumericText FormatKey = "txt_numero"
)

// Rule is one compiled catalog entry.
type Rule struct {
	Pattern    string         `json:"expression"`
	Expression *regexp.Regexp `json:"-"`
	Type       SemanticType   `json:"type"`
	Format     FormatKey      `json:"format,omitempty"`
}

// Format identifies the encoding of a catalog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type rawRule struct {
	Expresion *string `json:"expresion" yaml:"expresion"`
	TipoDato  *string `json:"tipo_dato" yaml:"tipo_dato"`
	XLS       any     `json:"xls" yaml:"xls"`
}

// DefaultRules returns the catalog bundled with the binary.
func DefaultRules() []Rule {
	rules, err := Load(bytes.NewReader(defaultCatalog), FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("patterns: bundled catalog is invalid: %v", err))
	}
	return rules
}

// LoadFile reads a catalog from disk. The encoding follows the extension:
// .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return nil, sheet.Errorf(sheet.ConfigError, path, "catalog path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sheet.Wrap(sheet.ConfigError, err, path, "catalog %s does not exist", path)
		}
		return nil, sheet.Wrap(sheet.ConfigError, err, path, "reading catalog %s", path)
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	rules, err := Load(bytes.NewReader(data), format)
	if err != nil {
		return nil, sheet.Wrap(sheet.ConfigError, err, path, "loading catalog %s", path)
	}
	return rules, nil
}

// Load decodes and compiles a catalog document. Any malformed entry fails
// the whole load.
func Load(r io.Reader, format Format) ([]Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sheet.Wrap(sheet.ConfigError, err, nil, "reading catalog")
	}

	var doc struct {
		Regex *[]rawRule `json:"regex" yaml:"regex"`
	}
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON, "":
		err = json.Unmarshal(bytes.TrimSpace(data), &doc)
	default:
		return nil, sheet.Errorf(sheet.ConfigError, format, "unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, sheet.Wrap(sheet.ConfigError, err, nil, "decoding catalog")
	}
	if doc.Regex == nil {
		return nil, sheet.Errorf(sheet.ConfigError, nil, "catalog has no \"regex\" list")
	}

	rules := make([]Rule, 0, len(*doc.Regex))
	for i, raw := range *doc.Regex {
		rule, err := compileRule(raw)
		if err != nil {
			return nil, sheet.Wrap(sheet.ConfigError, err, i, "rule %d", i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileRule(raw rawRule) (Rule, error) {
	if raw.Expresion == nil || strings.TrimSpace(*raw.Expresion) == "" {
		return Rule{}, sheet.Errorf(sheet.ConfigError, nil, "missing \"expresion\"")
	}
	if raw.TipoDato == nil || strings.TrimSpace(*raw.TipoDato) == "" {
		return Rule{}, sheet.Errorf(sheet.ConfigError, *raw.Expresion, "missing \"tipo_dato\"")
	}

	var format FormatKey
	switch x := raw.XLS.(type) {
	case string:
		format = FormatKey(strings.TrimSpace(x))
	case bool:
		if x {
			return Rule{}, sheet.Errorf(sheet.ConfigError, *raw.Expresion, "\"xls\" must be a format key or false")
		}
	default:
		return Rule{}, sheet.Errorf(sheet.ConfigError, *raw.Expresion, "\"xls\" must be a format key or false")
	}

	source, err := translate(*raw.Expresion)
	if err != nil {
		return Rule{}, err
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return Rule{}, sheet.Wrap(sheet.ConfigError, err, *raw.Expresion, "compiling expression")
	}

	return Rule{
		Pattern:    *raw.Expresion,
		Expression: re,
		Type:       SemanticType(strings.TrimSpace(*raw.TipoDato)),
		Format:     format,
	}, nil
}

// delimiters are the characters accepted around a delimited expression.
const delimiters = "/#~!@%|`;"

// translate converts a delimited expression such as `/^\d+$/i` into RE2
// syntax. Expressions without a leading delimiter are returned unchanged.
func translate(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	open := expr[0]
	if !strings.ContainsRune(delimiters, rune(open)) {
		return expr, nil
	}

	end := strings.LastIndexByte(expr, open)
	if end <= 0 {
		return "", sheet.Errorf(sheet.ConfigError, expr, "unterminated expression delimiter %q", string(open))
	}

	body := expr[1:end]
	var flags strings.Builder
	for _, f := range expr[end+1:] {
		switch f {
		case 'i', 'm', 's', 'U':
			if !strings.ContainsRune(flags.String(), f) {
				flags.WriteRune(f)
			}
		case 'u', 'D':
			// UTF-8 matching and end-only dollar are RE2 defaults.
		default:
			return "", sheet.Errorf(sheet.ConfigError, expr, "unsupported expression flag %q", string(f))
		}
	}

	if flags.Len() > 0 {
		return "(?" + flags.String() + ")" + body, nil
	}
	return body, nil
}
