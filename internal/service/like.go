package service

import "strings"

// likeEscaper 转义 LIKE 通配符，需配合 ESCAPE '\' 使用。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func prefixPattern(term string) string {
	return likeEscaper.Replace(term) + "%"
}

// likeAny matches pattern against any of columns, e.g.
// "(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')".
func likeAny(pattern string, columns ...string) (string, []interface{}) {
	parts := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, column := range columns {
		parts[i] = column + ` LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
