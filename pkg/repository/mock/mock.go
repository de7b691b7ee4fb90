package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	PostRepo *PostRepo
	UserRepo *UserRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		PostRepo: NewPostRepo(),
		UserRepo: &UserRepo{},
	}
}

// PostRepo keeps posts in memory. Setting GetErr or SaveResult makes the
// next calls fail the way a real backend would.
type PostRepo struct {
	mu         sync.Mutex
	order      []string
	posts      map[string]models.Post
	Saves      int
	GetErr     error
	SaveResult *repository.Result
}

var _ repository.PostRepo = (*PostRepo)(nil)

func NewPostRepo(posts ...models.Post) *PostRepo {
	m := &PostRepo{posts: make(map[string]models.Post)}
	for _, p := range posts {
		m.put(p)
	}
	return m
}

func (m *PostRepo) put(p models.Post) {
	if _, ok := m.posts[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.posts[p.ID] = p
}

func (m *PostRepo) Get(ctx context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	c := clone(p)
	return &c, nil
}

func (m *PostRepo) List(ctx context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	out := make([]models.Post, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.posts[id]))
	}
	return out, nil
}

func (m *PostRepo) Save(ctx context.Context, p models.Post) repository.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveResult != nil {
		return *m.SaveResult
	}
	m.Saves++
	m.put(clone(p))
	return repository.Success(1)
}

// UserRepo returns Stored when the username matches.
type UserRepo struct {
	Stored *models.User
	GetErr error
}

var _ repository.UserRepo = (*UserRepo)(nil)

func (m *UserRepo) Get(ctx context.Context, username string) (*models.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Stored != nil && m.Stored.Username == username {
		return m.Stored, nil
	}
	return nil, nil
}

// clone deep-copies p so callers never share slices with the stored copy.
func clone(p models.Post) models.Post {
	b, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out models.Post
	if err := json.Unmarshal(b, &out); err != nil {
		return p
	}
	return out
}
