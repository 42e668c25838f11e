package component

import "github.com/monadicstack/livepost/posts"

// FieldErrors maps a form field name ("title", "body") to its validation message.
type FieldErrors map[string]string

// Has reports whether the field failed validation.
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Get returns the message for the field, or "".
func (e FieldErrors) Get(field string) string {
	return e[field]
}

// Empty is true when nothing failed.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// validate checks that both buffers hold something other than whitespace.
func validate(state State) FieldErrors {
	errs := FieldErrors{}
	if posts.Blank(state.Title) {
		errs["title"] = "The title field is required."
	}
	if posts.Blank(state.Body) {
		errs["body"] = "The body field is required."
	}
	if errs.Empty() {
		return nil
	}
	return errs
}
