// Package component implements the posts screen: the transient state of one UI session
// and the operations (store, edit, cancel, update, delete) that move it around.
//
// Operations never reach for ambient globals. Each one receives the session's current
// State plus its input and answers with the next State and an optional flash notice:
//
//	outcome, err := posts.Dispatch(ctx, state, component.Edit(3))
//	if err != nil {
//	    // not-found faults: 'state' is untouched, show the user an alert
//	}
//	state = outcome.State
//	mailbox.Set(outcome.Notice)
package component

import "github.com/monadicstack/livepost/posts"

// Notices published by successful operations.
const (
	NoticeCreated = "Post Created Successfully."
	NoticeUpdated = "Post Updated Successfully."
	NoticeDeleted = "Post Deleted Successfully."
)

// State is everything the posts screen remembers between calls for one session.
type State struct {
	// Posts is the full table as of the latest render.
	Posts []posts.Post
	// Title is the title input buffer, shared by the create and edit forms.
	Title string
	// Body is the body textarea buffer, shared by the create and edit forms.
	Body string
	// PostID is the post being edited. Zero means nothing is selected.
	PostID int64
	// UpdateMode selects the edit form when true, the create form when false.
	UpdateMode bool
	// Errors holds the per-field validation messages from the latest operation.
	Errors FieldErrors
}

// Fields returns the form buffers as store input.
func (s State) Fields() posts.Fields {
	return posts.Fields{Title: s.Title, Body: s.Body}
}

// resetInput empties both form buffers.
func (s State) resetInput() State {
	s.Title = ""
	s.Body = ""
	return s
}

// Outcome is what an operation produced: the next state and at most one notice.
type Outcome struct {
	State  State
	Notice string
}

// HasNotice is true when the operation wants a flash message shown.
func (o Outcome) HasNotice() bool {
	return o.Notice != ""
}
