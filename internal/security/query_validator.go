package security

import (
	"errors"
	"strings"
)

var (
	ErrMultipleQueries = errors.New("multi-statement queries are not allowed")
	ErrNotSelect       = errors.New("only SELECT queries are allowed")
)

// ValidateStreamQuery enforces the rules for statements accepted on the
// streaming endpoint:
//  1. Must be a SELECT statement.
//  2. Must not contain multiple statements (semicolons).
//  3. Must not contain destructive keywords.
//  4. Must not access restricted system tables.
func ValidateStreamQuery(query string) error {
	q := strings.TrimSpace(query)
	qUpper := strings.ToUpper(q)

	if !strings.HasPrefix(qUpper, "SELECT") && !strings.HasPrefix(qUpper, "WITH") {
		return ErrNotSelect
	}

	if strings.Contains(q, ";") {
		return ErrMultipleQueries
	}

	forbidden := []string{
		"DELETE", "DROP", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
		"CREATE", "REPLACE", "CALL", "DO", "HANDLER", "LOAD", "UNION",
		"USER(", "VERSION(", "DATABASE(", "LOAD_FILE(", "@@VERSION", "@@HOSTNAME",
	}
	for _, word := range forbidden {
		if containsWord(qUpper, word) {
			return errors.New("forbidden keyword detected: " + word)
		}
	}

	systemTables := []string{
		"INFORMATION_SCHEMA", "MYSQL", "PERFORMANCE_SCHEMA", "PG_CATALOG", "SYS",
	}
	for _, table := range systemTables {
		if containsWord(qUpper, table) {
			return errors.New("access to system table blocked: " + table)
		}
	}

	return nil
}

// containsWord reports whether word occurs in s delimited by SQL word
// boundaries, so that "DELETE" matches but "deleted_at" does not. s must be
// uppercase already.
func containsWord(s, word string) bool {
	if !strings.Contains(s, word) {
		return false
	}

	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i == -1 {
			return false
		}
		start := idx + i
		end := start + len(word)

		startOK := start == 0 || isBoundary(s[start-1])
		endOK := end == len(s) || isBoundary(s[end])
		if startOK && endOK {
			return true
		}

		idx = start + 1
	}
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' ||
		b == '(' || b == ')' || b == ',' || b == '=' ||
		b == '<' || b == '>' || b == '`' || b == '.' ||
		b == '"' || b == '[' || b == ']' || b == '\''
}
