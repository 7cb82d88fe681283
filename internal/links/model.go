package links

import (
	"strings"
)

// Table is the relational table backing shared links.
const Table = "links"

// DefaultRating is assigned to new links and to restored links without a rating.
const DefaultRating = 5

// DateLayout is the YYYY-MM-DD form stored in date_added.
const DateLayout = "2006-01-02"

// Columns lists the links table columns in declaration order.
var Columns = []string{"id", "url", "platform", "added_by", "date_added", "rating", "liked", "disliked", "memo"}

// Link is one shared listing bookmark.
type Link struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	URL       string `gorm:"column:url;type:text;not null" json:"url"`
	Platform  string `gorm:"column:platform;type:text;not null" json:"platform"`
	AddedBy   string `gorm:"column:added_by;type:text;not null" json:"added_by"`
	DateAdded string `gorm:"column:date_added;type:text;not null" json:"date_added"`
	Rating    int    `gorm:"column:rating" json:"rating"`
	Liked     bool   `gorm:"column:liked" json:"liked"`
	Disliked  bool   `gorm:"column:disliked" json:"disliked"`
	Memo      string `gorm:"column:memo;type:text" json:"memo"`
}

// TableName provides the explicit table binding for GORM.
func (Link) TableName() string {
	return Table
}

// NumberedLink pairs a link with its display number inside one listing.
type NumberedLink struct {
	Link
	Number int `json:"number"`
}

// LikeState narrows a listing by reaction.
type LikeState string

const (
	LikeStateAll      LikeState = "all"
	LikeStateLiked    LikeState = "liked"
	LikeStateDisliked LikeState = "disliked"
)

// ParseLikeState maps user input to a LikeState; unrecognised values mean all.
func ParseLikeState(value string) LikeState {
	switch LikeState(strings.ToLower(strings.TrimSpace(value))) {
	case LikeStateLiked:
		return LikeStateLiked
	case LikeStateDisliked:
		return LikeStateDisliked
	default:
		return LikeStateAll
	}
}

// Action is the mutation kind carried by an update.
type Action string

const (
	ActionRating  Action = "rating"
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionMemo    Action = "memo"
)

// CreateRequest carries the caller-supplied fields of a new link.
type CreateRequest struct {
	URL      string
	Platform string
	AddedBy  string
	Memo     string
}

// UpdateRequest carries one action and its payload. Omitted payload values fall
// back to the rating default, false, or an empty memo.
type UpdateRequest struct {
	Action   Action
	Rating   *int
	Liked    *bool
	Disliked *bool
	Memo     *string
}
