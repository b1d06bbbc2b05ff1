// Package types implements the Type Parser (spec §4.2): parsing and
// validating a raw token against a parameter definition, including
// derived types, union types, and list expansion.
package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"botcore/internal/schema"
)

// Result is the outcome of parsing one token.
type Result struct {
	OK     bool
	Value  any
	Reason string
}

func ok(v any) Result           { return Result{OK: true, Value: v} }
func fail(reason string) Result { return Result{OK: false, Reason: reason} }

const (
	wildcardType = "*"
)

var (
	dateRE     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRE     = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
	emailRE    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	trueWords  = map[string]bool{"true": true, "yes": true, "on": true, "1": true}
	falseWords = map[string]bool{"false": true, "no": true, "off": true, "0": true}
)

// Parser validates raw tokens against the type catalog.
type Parser struct {
	catalog *schema.Catalog
}

// New builds a Parser bound to a loaded catalog (for derived-type
// lookups).
func New(catalog *schema.Catalog) *Parser {
	return &Parser{catalog: catalog}
}

// Parse validates raw against def, honoring optionality, list
// splitting/expansion/dedup, union branches, and derived-type suffix
// checks (spec §4.2).
func (p *Parser) Parse(raw *string, def schema.ParameterDefinition) Result {
	if raw == nil {
		if def.Optional {
			if def.Default != nil {
				return ok(def.Default)
			}
			return ok(nil)
		}
		return fail("required parameter missing")
	}

	if def.IsList {
		return p.parseList(*raw, def)
	}

	return p.parseScalar(*raw, def.Type)
}

// parseScalar dispatches union types across their branches, else
// parses a single base or derived type name.
func (p *Parser) parseScalar(raw, typeName string) Result {
	if strings.Contains(typeName, "|") {
		branches := strings.Split(typeName, "|")
		var lastReason string
		for _, branch := range branches {
			branch = strings.TrimSpace(branch)
			res := p.parseScalar(raw, branch)
			if res.OK {
				return res
			}
			lastReason = res.Reason
		}
		return fail(fmt.Sprintf("no branch of union %q matched: %s", typeName, lastReason))
	}
	return p.parseNamed(raw, typeName)
}

func (p *Parser) parseNamed(raw, typeName string) Result {
	if typeName == wildcardType {
		if raw == wildcardType {
			return ok(raw)
		}
		return fail(`literal "*" expected`)
	}

	if def, ok2 := p.catalog.Types[typeName]; ok2 && def.DerivedFrom != "" {
		base := p.parseBase(raw, def.DerivedFrom)
		if !base.OK {
			return base
		}
		if err := checkDerivedSuffix(typeName, raw); err != nil {
			return fail(err.Error())
		}
		return base
	}

	return p.parseBase(raw, typeName)
}

// checkDerivedSuffix applies the type-specific suffix/shape checks
// spec §4.2 calls out for derived types.
func checkDerivedSuffix(typeName, raw string) error {
	switch typeName {
	case "GroupId":
		if !strings.HasSuffix(raw, "@g.us") {
			return fmt.Errorf("%s must end with @g.us", typeName)
		}
	case "UserId":
		if !strings.HasSuffix(raw, "@s.whatsapp.net") {
			return fmt.Errorf("%s must end with @s.whatsapp.net", typeName)
		}
	case "Role", "Service", "Command", "Setting":
		if strings.ContainsAny(raw, " \t\n") {
			return fmt.Errorf("%s must not contain whitespace", typeName)
		}
	}
	return nil
}

func (p *Parser) parseBase(raw, typeName string) Result {
	switch typeName {
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fail(fmt.Sprintf("%q is not an int", raw))
		}
		return ok(n)
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fail(fmt.Sprintf("%q is not a float", raw))
		}
		return ok(f)
	case "bool":
		lower := strings.ToLower(raw)
		if trueWords[lower] {
			return ok(true)
		}
		if falseWords[lower] {
			return ok(false)
		}
		return fail(fmt.Sprintf("%q is not a bool", raw))
	case "word":
		if strings.ContainsAny(raw, " \t\n") || raw == "" {
			return fail(fmt.Sprintf("%q is not a single word", raw))
		}
		return ok(raw)
	case "string", "Arguments", "any":
		return ok(raw)
	case "date":
		if !dateRE.MatchString(raw) {
			return fail(fmt.Sprintf("%q is not a YYYY-MM-DD date", raw))
		}
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return fail(fmt.Sprintf("%q is not a valid date", raw))
		}
		return ok(raw)
	case "time":
		if !timeRE.MatchString(raw) {
			return fail(fmt.Sprintf("%q is not an HH:MM[:SS] time", raw))
		}
		layout := "15:04"
		if strings.Count(raw, ":") == 2 {
			layout = "15:04:05"
		}
		if _, err := time.Parse(layout, raw); err != nil {
			return fail(fmt.Sprintf("%q is not a valid time", raw))
		}
		return ok(raw)
	case "datetime":
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return fail(fmt.Sprintf("%q is not an ISO-8601 datetime", raw))
		}
		return ok(raw)
	case "email":
		if !emailRE.MatchString(raw) {
			return fail(fmt.Sprintf("%q is not an email address", raw))
		}
		return ok(raw)
	default:
		if def, exists := p.catalog.Types[typeName]; exists {
			if def.DerivedFrom != "" {
				return p.parseNamed(raw, typeName)
			}
		}
		return fail(fmt.Sprintf("unknown type %q", typeName))
	}
}

// splitList splits raw on unescaped commas.
func splitList(raw string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range raw {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// expandRange expands "N-M" into the inclusive integer range from N to
// M (ascending or descending); returns ok=false if token isn't of that
// shape.
func expandRange(token string) ([]int, bool) {
	if token == "" {
		return nil, false
	}
	idx := strings.Index(token[1:], "-")
	if idx < 0 {
		return nil, false
	}
	idx++ // adjust for the slice offset
	lo, errLo := strconv.Atoi(token[:idx])
	hi, errHi := strconv.Atoi(token[idx+1:])
	if errLo != nil || errHi != nil {
		return nil, false
	}
	var out []int
	if lo <= hi {
		for n := lo; n <= hi; n++ {
			out = append(out, n)
		}
	} else {
		for n := lo; n >= hi; n-- {
			out = append(out, n)
		}
	}
	return out, true
}

func (p *Parser) parseList(raw string, def schema.ParameterDefinition) Result {
	tokens := splitList(raw)
	baseIsNumeric := def.Type == "int" || def.Type == "float"

	var values []any
	seen := map[string]bool{}
	appendDedup := func(v any) {
		key := fmt.Sprintf("%v", v)
		if seen[key] {
			return
		}
		seen[key] = true
		values = append(values, v)
	}

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if baseIsNumeric && def.Type == "int" {
			if rangeVals, isRange := expandRange(token); isRange {
				for _, n := range rangeVals {
					appendDedup(n)
				}
				continue
			}
		}
		res := p.parseScalar(token, def.Type)
		if !res.OK {
			return fail(fmt.Sprintf("list item %q: %s", token, res.Reason))
		}
		appendDedup(res.Value)
	}

	if def.Min != nil && len(values) < *def.Min {
		return fail(fmt.Sprintf("list has %d items, minimum is %d", len(values), *def.Min))
	}
	if def.Max != nil && len(values) > *def.Max {
		return fail(fmt.Sprintf("list has %d items, maximum is %d", len(values), *def.Max))
	}

	return ok(values)
}
