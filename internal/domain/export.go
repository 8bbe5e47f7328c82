package domain

import "time"

// Item states as exported from GitHub.
const (
	StateOpen   = "OPEN"
	StateClosed = "CLOSED"
	StateMerged = "MERGED"
)

// Actor is the author of an exported item or event. ID is nil for bots and ghosts.
type Actor struct {
	Login string `json:"login"`
	ID    *int64 `json:"id"`
}

// Comment is an exported comment event.
type Comment struct {
	Author    *Actor    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is an exported pull request review.
type Review struct {
	Author      *Actor    `json:"author"`
	SubmittedAt time.Time `json:"submittedAt"`
	State       string    `json:"state"`
}

// ExportItem is a pull request or issue from a raw export file.
type ExportItem struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	MergedAt  *time.Time `json:"mergedAt"`
	ClosedAt  *time.Time `json:"closedAt"`
	Author    *Actor     `json:"author"`
	Labels    []string   `json:"labels"`
	Comments  []Comment  `json:"comments"`
	Reviews   []Review   `json:"reviews"`
}

// IsOpen reports whether the item is still open.
func (i ExportItem) IsOpen() bool { return i.State == StateOpen }

// AuthorID returns the author's database ID, or false when unknown.
func (i ExportItem) AuthorID() (int64, bool) {
	if i.Author == nil || i.Author.ID == nil {
		return 0, false
	}
	return *i.Author.ID, true
}
