package sql

import (
	"regexp"
	"strings"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	statementStart = regexp.MustCompile(`(?im)^[ \t]*(select|with|insert|update|delete)\b`)
)

// Extract pulls the first SQL statement out of a model completion.
// Fenced code blocks are preferred; otherwise the first line opening
// with a statement keyword is taken through its terminating semicolon,
// a blank line, or end of text. Models are instructed to return bare
// SQL, so anything needing more than this is treated as no statement.
// discarded counts the statement-like spans left behind after the
// chosen one, so callers can log that the completion held more.
func Extract(completion string) (stmt string, discarded int, err error) {
	for _, loc := range fencePattern.FindAllStringSubmatchIndex(completion, -1) {
		if stmt, ok := firstStatement(completion[loc[2]:loc[3]]); ok {
			return stmt, spanCount(completion[loc[1]:]), nil
		}
	}
	if stmt, ok := firstStatement(completion); ok {
		rest := ""
		if idx := strings.Index(completion, stmt); idx >= 0 {
			rest = completion[idx+len(stmt):]
		}
		return stmt, spanCount(rest), nil
	}
	return "", 0, ErrNoStatement
}

// spanCount counts statement-keyword-led lines in text.
func spanCount(text string) int {
	return len(statementStart.FindAllStringIndex(text, -1))
}

func firstStatement(text string) (string, bool) {
	loc := statementStart.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	candidate := text[loc[0]:]

	if i := semicolonIndexOutsideStrings(candidate); i >= 0 {
		candidate = candidate[:i+1]
	} else if i := blankLineIndex(candidate); i >= 0 {
		candidate = candidate[:i]
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}
	return candidate, true
}

var blankLinePattern = regexp.MustCompile(`\n[ \t]*\n`)

// blankLineIndex finds the first blank line, which separates the
// statement from trailing prose when the model ignored instructions.
func blankLineIndex(text string) int {
	loc := blankLinePattern.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[0]
}
