package links

import (
	"strings"

	"gorm.io/gorm"
)

const filterAll = "all"

// Filter narrows a listing. Empty fields and "all" impose no constraint; the
// remaining predicates are combined with AND.
type Filter struct {
	Platform  string
	AddedBy   string
	LikeState LikeState
	DateAdded string
}

type predicate struct {
	clause string
	args   []any
}

func (f Filter) predicates() []predicate {
	var predicates []predicate
	if value, ok := constrained(f.Platform); ok {
		predicates = append(predicates, predicate{clause: "platform = ?", args: []any{value}})
	}
	if value, ok := constrained(f.AddedBy); ok {
		predicates = append(predicates, predicate{clause: "added_by = ?", args: []any{value}})
	}
	switch f.LikeState {
	case LikeStateLiked:
		predicates = append(predicates, predicate{clause: "liked = ?", args: []any{true}})
	case LikeStateDisliked:
		predicates = append(predicates, predicate{clause: "disliked = ?", args: []any{true}})
	}
	if value := strings.TrimSpace(f.DateAdded); value != "" {
		predicates = append(predicates, predicate{clause: "date_added = ?", args: []any{value}})
	}
	return predicates
}

func (f Filter) apply(query *gorm.DB) *gorm.DB {
	for _, p := range f.predicates() {
		query = query.Where(p.clause, p.args...)
	}
	return query
}

func constrained(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == filterAll {
		return "", false
	}
	return trimmed, true
}

// number assigns display numbers to a newest-first listing: the oldest entry
// gets 1 and the newest gets len(ordered).
func number(ordered []Link) []NumberedLink {
	total := len(ordered)
	numbered := make([]NumberedLink, 0, total)
	for position, link := range ordered {
		numbered = append(numbered, NumberedLink{Link: link, Number: total - position})
	}
	return numbered
}
