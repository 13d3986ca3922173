// Package filterexpr parses boolean filter expressions for run history
// queries and turns them into Bun query builders.
//
// An expression is built from terms combined with '&' (and), '|' (or),
// '!' (not) and parentheses. A term is either a bare value, matched against
// profile, target, status and failed step, or a qualified "field:value"
// pair, e.g. "status:failed & !target:local".
package filterexpr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/uptrace/bun"
)

var valuePattern = regexp.MustCompile(`^[a-zA-Z0-9_@%+*./-]+$`)

// columns maps term qualifiers to journal columns.
var columns = map[string]string{
	"profile": "profile",
	"target":  "target",
	"status":  "status",
	"step":    "failed_step",
}

// parseExpr recursively applies expr to qb. andMode selects Where vs
// WhereOr for the terms produced at this level; negate carries negation
// pushed down from an enclosing !(...) group.
func parseExpr(expr string, qb bun.QueryBuilder, andMode bool, negate bool) (bun.QueryBuilder, error) {
	expr = strings.TrimSpace(expr)

	// Conjunctions first: '&' binds its parts with AND, '|' with OR.
	for _, c := range [...]struct {
		op  rune
		and bool
	}{{'&', true}, {'|', false}} {
		parts := splitTopLevel(expr, c.op)
		if len(parts) < 2 {
			continue
		}
		var err error
		for _, part := range parts {
			if qb, err = parseExpr(part, qb, c.and != negate, negate); err != nil {
				return nil, err
			}
		}
		return qb, nil
	}

	expr, negated := strings.CutPrefix(expr, "!")
	expr = strings.TrimSpace(expr)

	if inner, ok := parenGroup(expr); ok {
		op := " OR "
		if andMode {
			op = " AND "
		}
		if negated {
			// Bun cannot negate a WhereGroup directly; push the negation
			// down to the leaves instead.
			negate = !negate
		}
		var err error
		qb = qb.WhereGroup(op, func(qb bun.QueryBuilder) bun.QueryBuilder {
			qb, err = parseExpr(inner, qb, true != negate, negate)
			return qb
		})
		if err != nil {
			return nil, err
		}
		return qb, nil
	}

	return leafTerm(expr, qb, andMode, negated != negate)
}

// parenGroup unwraps one level of surrounding parentheses.
func parenGroup(expr string) (string, bool) {
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return expr[1 : len(expr)-1], true
	}
	return expr, false
}

// leafTerm applies a single term, either "field:value" or a bare value
// matched against all searchable columns.
func leafTerm(expr string, qb bun.QueryBuilder, andMode bool, negated bool) (bun.QueryBuilder, error) {
	if qualifier, value, qualified := strings.Cut(expr, ":"); qualified {
		col, ok := columns[strings.ToLower(strings.TrimSpace(qualifier))]
		if !ok {
			return nil, fmt.Errorf("unknown filter field: %s", qualifier)
		}
		value = strings.TrimSpace(value)
		if !valuePattern.MatchString(value) {
			return nil, fmt.Errorf("invalid filter value: %s", value)
		}
		query := "LOWER(COALESCE(" + col + ", '')) LIKE ?"
		if negated {
			query = "LOWER(COALESCE(" + col + ", '')) NOT LIKE ?"
		}
		return applyWhere(qb, andMode, query, "%"+strings.ToLower(value)+"%"), nil
	}

	if !valuePattern.MatchString(expr) {
		return nil, fmt.Errorf("invalid filter term: %s", expr)
	}
	query := "(LOWER(profile) LIKE ? OR LOWER(target) LIKE ? OR LOWER(status) LIKE ? OR LOWER(COALESCE(failed_step, '')) LIKE ?)"
	if negated {
		query = "NOT " + query
	}
	like := "%" + strings.ToLower(expr) + "%"
	return applyWhere(qb, andMode, query, like, like, like, like), nil
}

// applyWhere attaches the condition with AND or OR.
func applyWhere(qb bun.QueryBuilder, andMode bool, query string, args ...any) bun.QueryBuilder {
	if andMode {
		return qb.Where(query, args...)
	}
	return qb.WhereOr(query, args...)
}

// splitTopLevel splits expr on occurrences of op outside parentheses.
func splitTopLevel(expr string, op rune) []string {
	var parts []string
	depth, start := 0, 0
	for i, ch := range expr {
		if ch == '(' {
			depth++
		} else if ch == ')' {
			depth--
		} else if ch == op && depth == 0 {
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	return append(parts, expr[start:])
}

// Validate checks an expression for syntax errors without running a query.
func Validate(expr string) error {
	sq := &bun.SelectQuery{}
	_, err := parseExpr(expr, sq.QueryBuilder(), true, false)
	return err
}

// QueryBuilder returns a function that applies the parsed expression to a
// Bun query builder. The expression is validated up front so the returned
// closure cannot fail.
func QueryBuilder(expr string) (func(bun.QueryBuilder) bun.QueryBuilder, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	return func(qb bun.QueryBuilder) bun.QueryBuilder {
		qb, _ = parseExpr(expr, qb, true, false)
		return qb
	}, nil
}
