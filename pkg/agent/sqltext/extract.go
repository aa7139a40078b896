// Package sqltext separates executable SQL from the prose a model wraps around it.
package sqltext

import (
	"regexp"
	"strings"
)

var (
	fenceRe       = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")
	sqlLabelRe    = regexp.MustCompile(`(?im)^\s*(?:\*\*)?SQL(?:\s+query)?(?:\*\*)?\s*:(?:\*\*)?\s*`)
	explainRe     = regexp.MustCompile(`(?im)^\s*(?:\*\*)?Explanation(?:\*\*)?\s*:(?:\*\*)?\s*`)
	strayFenceRe  = regexp.MustCompile("```[a-zA-Z]*")
	sqlStartWords = []string{"SELECT", "WITH"}
)

// Extract returns the SQL statement and the explanation from a model answer. It accepts
// fenced blocks, "SQL:" / "Explanation:" labels in either order, or bare SQL.
func Extract(raw string) (sql, explanation string) {
	text := strings.TrimSpace(raw)

	if m := fenceRe.FindStringSubmatchIndex(text); m != nil {
		rest := text[:m[0]] + "\n" + text[m[1]:]
		stmt, tail := splitStatement(stripLabels(text[m[2]:m[3]]))
		return stmt, joinProse(cleanProse(rest), tail)
	}

	sqlLoc := sqlLabelRe.FindStringIndex(text)
	explLoc := explainRe.FindStringIndex(text)

	switch {
	case sqlLoc != nil && explLoc != nil && explLoc[0] < sqlLoc[0]:
		explanation = text[explLoc[1]:sqlLoc[0]]
		sql = text[sqlLoc[1]:]
	case sqlLoc != nil && explLoc != nil:
		sql = text[sqlLoc[1]:explLoc[0]]
		explanation = text[explLoc[1]:]
	case sqlLoc != nil:
		explanation = text[:sqlLoc[0]]
		sql = text[sqlLoc[1]:]
	case explLoc != nil && strings.TrimSpace(text[:explLoc[0]]) == "":
		rest := text[explLoc[1]:]
		if i := queryStart(rest); i >= 0 {
			explanation, sql = rest[:i], rest[i:]
		} else {
			explanation = rest
		}
	case explLoc != nil:
		sql = text[:explLoc[0]]
		explanation = text[explLoc[1]:]
	default:
		sql, explanation = splitLeadingProse(text)
	}

	sql, tail := splitStatement(strayFenceRe.ReplaceAllString(sql, ""))
	return sql, joinProse(cleanProse(explanation), tail)
}

// splitLeadingProse drops prose before the first line that starts a query.
func splitLeadingProse(text string) (sql, prose string) {
	if i := queryStart(text); i >= 0 {
		return text[i:], text[:i]
	}
	return text, ""
}

// queryStart returns the byte offset of the first line that begins with a query keyword, or -1.
func queryStart(text string) int {
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		upper := strings.ToUpper(strings.TrimSpace(line))
		for _, w := range sqlStartWords {
			if strings.HasPrefix(upper, w) {
				return offset
			}
		}
		offset += len(line)
	}
	return -1
}

// splitStatement cuts after the first semicolon outside quotes. Anything after it is prose.
func splitStatement(sql string) (stmt, tail string) {
	sql = strings.TrimSpace(sql)
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return strings.TrimSpace(sql[:i+1]), strings.TrimSpace(sql[i+1:])
		}
	}
	return sql, ""
}

func stripLabels(s string) string {
	s = sqlLabelRe.ReplaceAllString(s, "")
	if loc := explainRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}

func cleanProse(s string) string {
	s = sqlLabelRe.ReplaceAllString(s, "")
	s = explainRe.ReplaceAllString(s, "")
	s = strayFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func joinProse(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
