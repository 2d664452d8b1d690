package queryexec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// resolveTemplates substitutes {{ expression }} placeholders in query text,
// evaluating each expression against a snapshot of the environment. The
// result is spliced in literally; strings are quoted as SQL literals.
//
// Interpolation is a run-time convenience: it does not make a query cell
// depend on the cells producing the referenced names.
func resolveTemplates(query string, env map[string]any) (string, error) {
	var firstErr error

	resolved := placeholderPattern.ReplaceAllStringFunc(query, func(match string) string {
		expression := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])

		program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("template %q: %w", expression, err)
			}
			return match
		}

		out, err := expr.Run(program, env)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("template %q: %w", expression, err)
			}
			return match
		}

		return toSQLLiteral(out)
	})

	if firstErr != nil {
		return "", firstErr
	}
	return resolved, nil
}

func toSQLLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
