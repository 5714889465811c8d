package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns a free-text query into a substring pattern for
// LIKE/ILIKE ... ESCAPE '\'. Wildcards in q match literally.
func LikePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
