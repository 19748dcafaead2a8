package utils

import (
	"strings"
)

// JoinWithAnd trả về " WHERE a AND b", rỗng khi không có clause
func JoinWithAnd(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escape wildcard của LIKE với escape char '\'
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
