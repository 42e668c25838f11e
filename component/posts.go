package component

import (
	"context"
	"fmt"

	"github.com/monadicstack/livepost/posts"
	"github.com/monadicstack/livepost/rpc/errors"
)

// Name is how the posts screen identifies itself on the wire ("Posts.Store", ...).
const Name = "Posts"

// New constructs the posts component on top of the given store.
func New(store posts.Store) Posts {
	p := Posts{Store: store}
	p.handlers = map[Action]handlerFunc{
		ActionStore:  p.store,
		ActionEdit:   p.edit,
		ActionCancel: p.cancel,
		ActionUpdate: p.update,
		ActionDelete: p.delete,
	}
	return p
}

// Posts is the controller for the posts screen. It holds no per-session data itself; the
// caller owns the State and hands it to every call.
type Posts struct {
	// Store is where the posts actually live.
	Store    posts.Store
	handlers map[Action]handlerFunc
}

type handlerFunc func(ctx context.Context, state State, cmd Command) (Outcome, error)

// Render reloads the full post list into the state. Nothing else changes.
func (p Posts) Render(ctx context.Context, state State) (State, error) {
	results, err := p.Store.List(ctx)
	if err != nil {
		return state, fmt.Errorf("render: %w", err)
	}
	state.Posts = results
	return state, nil
}

// Dispatch runs a single command against the state. Validation failures are not errors:
// they come back as an Outcome whose State carries the field messages. Errors (not-found
// faults, store failures) mean the operation was abandoned and 'state' still applies.
func (p Posts) Dispatch(ctx context.Context, state State, cmd Command) (Outcome, error) {
	handler, ok := p.handlers[cmd.Action]
	if !ok {
		return Outcome{State: state}, errors.BadRequest("unknown operation: %v", cmd.Action)
	}

	// Messages only describe the call that produced them.
	state.Errors = nil
	return handler(ctx, state, cmd)
}

func (p Posts) store(ctx context.Context, state State, _ Command) (Outcome, error) {
	if errs := validate(state); errs != nil {
		state.Errors = errs
		return Outcome{State: state}, nil
	}

	if _, err := p.Store.Create(ctx, state.Fields()); err != nil {
		return Outcome{}, fmt.Errorf("store: %w", err)
	}
	return Outcome{State: state.resetInput(), Notice: NoticeCreated}, nil
}

func (p Posts) edit(ctx context.Context, state State, cmd Command) (Outcome, error) {
	post, err := p.Store.Find(ctx, cmd.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("edit: %w", err)
	}

	state.PostID = post.ID
	state.Title = post.Title
	state.Body = post.Body
	state.UpdateMode = true
	return Outcome{State: state}, nil
}

func (p Posts) cancel(_ context.Context, state State, _ Command) (Outcome, error) {
	state.UpdateMode = false
	return Outcome{State: state.resetInput()}, nil
}

func (p Posts) update(ctx context.Context, state State, _ Command) (Outcome, error) {
	if errs := validate(state); errs != nil {
		state.Errors = errs
		return Outcome{State: state}, nil
	}
	if state.PostID == 0 {
		return Outcome{}, errors.NotFound("update: no post selected")
	}

	if _, err := p.Store.Update(ctx, state.PostID, state.Fields()); err != nil {
		return Outcome{}, fmt.Errorf("update: %w", err)
	}
	state.UpdateMode = false
	return Outcome{State: state.resetInput(), Notice: NoticeUpdated}, nil
}

func (p Posts) delete(ctx context.Context, state State, cmd Command) (Outcome, error) {
	if err := p.Store.Delete(ctx, cmd.ID); err != nil {
		return Outcome{}, fmt.Errorf("delete: %w", err)
	}
	return Outcome{State: state, Notice: NoticeDeleted}, nil
}
