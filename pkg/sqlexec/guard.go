package sqlexec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStatementNotAllowed is returned for anything other than one read-only query.
var ErrStatementNotAllowed = errors.New("statement not allowed")

var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true, "UPSERT": true,
	"DROP": true, "ALTER": true, "CREATE": true, "TRUNCATE": true, "RENAME": true,
	"GRANT": true, "REVOKE": true, "COPY": true, "VACUUM": true, "CALL": true,
	"INTO": true, "LOCK": true, "REINDEX": true, "CLUSTER": true, "REFRESH": true,
}

var forbiddenFunctions = []string{
	"PG_TERMINATE_BACKEND", "PG_CANCEL_BACKEND", "PG_RELOAD_CONF", "PG_SLEEP",
	"LO_IMPORT", "LO_EXPORT", "DBLINK", "SET_CONFIG", "PG_READ_FILE", "PG_WRITE_FILE",
}

// Guard checks that query is a single SELECT (or WITH ... SELECT) statement and returns it
// without trailing semicolons.
func Guard(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	for strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	}
	if stmt == "" {
		return "", fmt.Errorf("%w: empty statement", ErrStatementNotAllowed)
	}

	code := stripLiterals(stmt)
	if strings.Contains(code, ";") {
		return "", fmt.Errorf("%w: only one statement may be executed", ErrStatementNotAllowed)
	}

	words := strings.FieldsFunc(strings.ToUpper(code), func(r rune) bool {
		return !(r == '_' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty statement", ErrStatementNotAllowed)
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return "", fmt.Errorf("%w: query must start with SELECT or WITH, got %s", ErrStatementNotAllowed, words[0])
	}

	for _, w := range words {
		if forbiddenKeywords[w] {
			return "", fmt.Errorf("%w: %s is not permitted in a read-only query", ErrStatementNotAllowed, w)
		}
		for _, fn := range forbiddenFunctions {
			if w == fn {
				return "", fmt.Errorf("%w: function %s is not permitted", ErrStatementNotAllowed, strings.ToLower(fn))
			}
		}
	}

	return stmt, nil
}

// stripLiterals blanks out string literals, quoted identifiers, dollar-quoted bodies and
// comments so keyword checks only see SQL code.
func stripLiterals(sql string) string {
	var out strings.Builder
	out.Grow(len(sql))

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(sql, i+1, c)
			out.WriteByte(' ')
			i = end
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end
			}
			out.WriteByte(' ')
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 4
			}
			out.WriteByte(' ')
		case c == '$':
			if tag, ok := dollarTag(sql[i:]); ok {
				end := strings.Index(sql[i+len(tag):], tag)
				if end < 0 {
					i = len(sql)
				} else {
					i += len(tag) + end + len(tag)
				}
				out.WriteByte(' ')
				continue
			}
			out.WriteByte(c)
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// closingQuote returns the index just past the quote that closes a literal started before
// from. Doubled quotes are escapes.
func closingQuote(sql string, from int, quote byte) int {
	for i := from; i < len(sql); i++ {
		if sql[i] != quote {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(sql)
}

// dollarTag recognises $$ and $tag$ openers. Positional parameters like $1 are not tags.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		isIdent := c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || (i > 1 && c >= '0' && c <= '9')
		if !isIdent {
			return "", false
		}
	}
	return "", false
}
