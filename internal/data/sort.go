package data

import "strings"

const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"

	defaultListLimit = 50
)

// validateSort returns a safe sort column and direction. Unknown columns fall
// back to created_at; unknown directions fall back to descending.
func validateSort(sort, dir string, allowed map[string]string) (string, string) {
	sortCol := "created_at"
	sortDir := sortDirDesc

	if sort != "" {
		if validSort, ok := allowed[strings.ToLower(strings.TrimSpace(sort))]; ok {
			sortCol = validSort
		}
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		sortDir = sortDirAsc
	case "desc":
		sortDir = sortDirDesc
	}
	return sortCol, sortDir
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return limit, max(offset, 0)
}
