package query

import "fmt"

// SyntaxError reports a malformed query with the offending token's position.
type SyntaxError struct {
	Token  string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d near %q: %s", e.Line, e.Column, e.Token, e.Msg)
}

// AggregationWildcardError reports an aggregation function applied to '*'.
// Only size accepts a wildcard argument.
type AggregationWildcardError struct {
	Function string
}

func (e *AggregationWildcardError) Error() string {
	return fmt.Sprintf("aggregation %s cannot be applied to *", e.Function)
}
