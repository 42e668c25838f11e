package posts

import (
	"context"
	"sync"
	"time"
)

// NewMemoryStore constructs a store that keeps posts in-memory. Nothing survives a
// restart, which makes it handy for tests and throwaway demos.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// MemoryStore is a mutex-guarded slice of posts ordered by id. Ids start at 1 and are
// never reused, even after a delete.
type MemoryStore struct {
	mutex  sync.RWMutex
	posts  []Post
	lastID int64
	now    func() time.Time
}

func (m *MemoryStore) Create(_ context.Context, fields Fields) (Post, error) {
	if err := fields.check("create"); err != nil {
		return Post{}, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	m.lastID++
	post := Post{
		ID:        m.lastID,
		Title:     fields.Title,
		Body:      fields.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.posts = append(m.posts, post)
	return post, nil
}

func (m *MemoryStore) Find(_ context.Context, id int64) (Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if i := m.indexOf(id); i >= 0 {
		return m.posts[i], nil
	}
	return Post{}, notFound(id)
}

func (m *MemoryStore) List(_ context.Context) ([]Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	results := make([]Post, len(m.posts))
	copy(results, m.posts)
	return results, nil
}

func (m *MemoryStore) Update(_ context.Context, id int64, fields Fields) (Post, error) {
	if err := fields.check("update"); err != nil {
		return Post{}, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return Post{}, notFound(id)
	}
	m.posts[i].Title = fields.Title
	m.posts[i].Body = fields.Body
	m.posts[i].UpdatedAt = m.now()
	return m.posts[i], nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	m.posts = append(m.posts[:i], m.posts[i+1:]...)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// indexOf finds the slice position of the post with this id, or -1. Callers hold the lock.
func (m *MemoryStore) indexOf(id int64) int {
	for i, post := range m.posts {
		if post.ID == id {
			return i
		}
	}
	return -1
}
