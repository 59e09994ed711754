// Package bridge reaches the optional collaborators: semantic search and
// citation linting. Each bridge checks the capability before use.
package bridge

type SearchResult struct {
	ItemID  int64   `json:"id"`
	Title   string  `json:"title"`
	Authors string  `json:"authors,omitempty"`
	Year    string  `json:"year,omitempty"`
	Score   float32 `json:"score,omitempty"`
}

type FixResult struct {
	Fixed  int      `json:"fixed"`
	Errors []string `json:"errors"`
}
