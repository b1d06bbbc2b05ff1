package parser

import (
	"strings"

	"botcore/internal/schema"
	"botcore/internal/types"
)

// BindResult is the outcome of binding an ordered token list against an
// ordered parameter list (spec §4.3 "Argument binding").
type BindResult struct {
	// Args holds every parameter successfully resolved: parsed value
	// (bound, defaulted, or explicit optional-absent nil).
	Args map[string]any
	// Missing lists, in parameter order, every required parameter (no
	// default, not optional) that had no token to consume — triggers
	// interactive mode downstream.
	Missing []string
	// Invalid maps parameter name to the type-parser's failure reason,
	// for parameters that DID receive a token but failed validation.
	Invalid map[string]string
}

// BindArguments assigns tokens to params left-to-right and type-checks
// each assignment. The last string/Arguments parameter consumes every
// remaining token (joined by single spaces); a list parameter consumes
// exactly one (comma-bearing) token; everything else consumes one
// token each.
func BindArguments(typeParser *types.Parser, params []schema.Parameter, tokens []string) BindResult {
	result := BindResult{Args: map[string]any{}, Invalid: map[string]string{}}
	consumed := 0

	for i, param := range params {
		isLast := i == len(params)-1
		var raw *string

		switch {
		case isLast && (param.Def.Type == "string" || param.Def.Type == "Arguments") && consumed < len(tokens):
			joined := strings.Join(tokens[consumed:], " ")
			raw = &joined
			consumed = len(tokens)
		case consumed < len(tokens):
			joined := tokens[consumed]
			raw = &joined
			consumed++
		}

		res := typeParser.Parse(raw, param.Def)
		switch {
		case res.OK:
			result.Args[param.Name] = res.Value
		case raw == nil:
			result.Missing = append(result.Missing, param.Name)
		default:
			result.Invalid[param.Name] = res.Reason
		}
	}

	return result
}
