// Package posts owns the Post record and the stores that persist it.
package posts

import (
	"strings"
	"time"

	"github.com/monadicstack/livepost/rpc/errors"
)

// Post is a single title/body record managed by the posts component.
type Post struct {
	// ID is assigned by the store when the post is created and never changes afterwards.
	ID int64 `json:"id"`
	// Title is the single-line headline of the post.
	Title string `json:"title"`
	// Body is the multi-line text of the post.
	Body string `json:"body"`
	// CreatedAt is stamped by the store on create.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is stamped by the store on create and on every update.
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields are the user-editable attributes of a post. Both create and update accept them.
type Fields struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Blank reports whether the value is empty once surrounding whitespace is ignored.
func Blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// check is the store-side guard for the non-empty invariant. The component validates first
// and reports per-field messages, so hitting this means a caller skipped validation.
func (f Fields) check(op string) error {
	if Blank(f.Title) {
		return errors.BadRequest("%s: title is required", op)
	}
	if Blank(f.Body) {
		return errors.BadRequest("%s: body is required", op)
	}
	return nil
}

func notFound(id int64) error {
	return errors.NotFound("post not found: %d", id)
}
