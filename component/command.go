package component

import (
	"strconv"
	"strings"

	"github.com/monadicstack/livepost/rpc/errors"
)

// Action names one of the operations a UI event can trigger.
type Action int

// The operations a UI event can trigger. The zero value is deliberately invalid.
const (
	ActionStore Action = iota + 1
	ActionEdit
	ActionCancel
	ActionUpdate
	ActionDelete
)

var actionNames = map[Action]string{
	ActionStore:  "Store",
	ActionEdit:   "Edit",
	ActionCancel: "Cancel",
	ActionUpdate: "Update",
	ActionDelete: "Delete",
}

// String returns the operation name used on the wire (e.g. "Store").
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "Unknown"
}

// TakesID reports whether the operation needs a post id argument.
func (a Action) TakesID() bool {
	return a == ActionEdit || a == ActionDelete
}

// Actions lists every operation in a stable order.
func Actions() []Action {
	return []Action{ActionStore, ActionEdit, ActionCancel, ActionUpdate, ActionDelete}
}

// ParseAction resolves a wire name such as "store" or "Delete" (case-insensitive).
func ParseAction(name string) (Action, error) {
	for action, actionName := range actionNames {
		if strings.EqualFold(actionName, strings.TrimSpace(name)) {
			return action, nil
		}
	}
	return 0, errors.BadRequest("unknown operation: '%s'", name)
}

// Command is one UI event: the operation plus its argument, if it takes one.
type Command struct {
	Action Action
	ID     int64
}

// Store builds the command that creates a post from the form buffers.
func Store() Command { return Command{Action: ActionStore} }

// Edit builds the command that loads post 'id' into the edit form.
func Edit(id int64) Command { return Command{Action: ActionEdit, ID: id} }

// Cancel builds the command that abandons the edit form.
func Cancel() Command { return Command{Action: ActionCancel} }

// Update builds the command that saves the edit form.
func Update() Command { return Command{Action: ActionUpdate} }

// Delete builds the command that removes post 'id'.
func Delete(id int64) Command { return Command{Action: ActionDelete, ID: id} }

func (c Command) String() string {
	if c.Action.TakesID() {
		return c.Action.String() + "(" + strconv.FormatInt(c.ID, 10) + ")"
	}
	return c.Action.String() + "()"
}
