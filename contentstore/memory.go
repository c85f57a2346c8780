package contentstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anyproto/any-sync/app"

	"github.com/openlearn/course-publish-server/domain"
)

// NewInMemory returns a ContentStore without persistence, used by tests and
// local runs.
func NewInMemory() ContentStore {
	return &memoryStore{
		draft:     map[string]*domain.Node{},
		published: map[string]*domain.Node{},
	}
}

type memoryStore struct {
	mu        sync.Mutex
	draft     map[string]*domain.Node
	published map[string]*domain.Node
}

func (m *memoryStore) Init(a *app.App) (err error) {
	return
}

func (m *memoryStore) Name() (name string) {
	return CName
}

func (m *memoryStore) Run(ctx context.Context) (err error) {
	return
}

func (m *memoryStore) GetItem(ctx context.Context, key domain.UsageKey) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getNode(m.draft, canonicalId(key))
}

func (m *memoryStore) GetPublished(ctx context.Context, key domain.UsageKey) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getNode(m.published, canonicalId(key))
}

func (m *memoryStore) GetCourse(ctx context.Context, key domain.CourseKey) (*domain.Node, error) {
	return m.GetItem(ctx, key.Canonical().RootKey())
}

func (m *memoryStore) HasCourse(ctx context.Context, key domain.CourseKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.draft[key.Canonical().RootKey().String()]
	return ok, nil
}

func (m *memoryStore) ListCourses(ctx context.Context, org string) ([]*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var nodes []*domain.Node
	for _, n := range m.draft {
		if n.Location.Category != domain.CourseCategory {
			continue
		}
		if org != "" && !strings.EqualFold(n.Location.Course.Org, org) {
			continue
		}
		nodes = append(nodes, copyNode(n))
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Id < nodes[j].Id
	})
	return nodes, nil
}

func (m *memoryStore) CreateItem(ctx context.Context, node *domain.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.Id = canonicalId(node.Location)
	if _, ok := m.draft[node.Id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, node.Id)
	}
	m.draft[node.Id] = copyNode(node)
	return nil
}

func (m *memoryStore) UpdateItem(ctx context.Context, node *domain.Node, actor string, isPublish bool) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.Id = canonicalId(node.Location)
	if _, ok := m.draft[node.Id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, node.Id)
	}
	node.EditedBy = actor
	node.EditedOn = time.Now().Unix()
	if isPublish && len(node.Buffer) == 0 {
		node.Buffer = nil
	}
	m.draft[node.Id] = copyNode(node)
	return node, nil
}

func (m *memoryStore) Publish(ctx context.Context, key domain.UsageKey, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := canonicalId(key)
	node, ok := m.draft[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	node.PublishedBy = actor
	node.PublishedOn = time.Now().Unix()
	published := copyNode(node)
	published.Buffer = nil
	m.published[id] = published
	return nil
}

func (m *memoryStore) Close(ctx context.Context) (err error) {
	return
}

func getNode(nodes map[string]*domain.Node, id string) (*domain.Node, error) {
	node, ok := nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyNode(node), nil
}

// copyNode detaches maps and slices so callers can't mutate stored nodes.
func copyNode(n *domain.Node) *domain.Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	if n.Fields != nil {
		c.Fields = make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			c.Fields[k] = v
		}
	}
	if n.Buffer != nil {
		c.Buffer = make(domain.UploadBuffer, len(n.Buffer))
		for k, v := range n.Buffer {
			c.Buffer[k] = v
		}
	}
	return &c
}
