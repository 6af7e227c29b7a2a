package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern written
// with ESCAPE '\'.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
