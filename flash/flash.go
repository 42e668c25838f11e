// Package flash is a single-slot mailbox for one-shot notices such as
// "Post Created Successfully.". A notice is set by an operation, shown by the very next
// render and then forgotten.
package flash

import "sync"

// Mailbox holds at most one pending notice. The zero value is an empty mailbox ready to use.
type Mailbox struct {
	mutex   sync.Mutex
	message string
	pending bool
}

// Set stores the notice, replacing anything that has not been shown yet.
func (m *Mailbox) Set(message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.message = message
	m.pending = true
}

// Take returns the pending notice and empties the mailbox. The second value is false when
// there was nothing to show.
func (m *Mailbox) Take() (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.pending {
		return "", false
	}
	message := m.message
	m.message = ""
	m.pending = false
	return message, true
}
