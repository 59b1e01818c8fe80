package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)
