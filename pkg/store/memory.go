package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process PolicyStore used by tests and for local
// experimentation without a management plane. It assigns opaque ids the
// way the remote system would and records every mutating call so tests
// can assert on the exact mutation sequence.
type MemoryStore struct {
	mu sync.Mutex

	// PageSize bounds each listing page. Zero means unpaginated.
	PageSize int

	// SessionErr, when set, makes CheckSession fail.
	SessionErr error

	// Fail maps an operation name (e.g. "Attach") to an error that the
	// operation returns instead of executing.
	Fail map[string]error

	policies    map[string]*RemotePolicy // by id
	nodes       map[string]*HierarchyNode
	attachments map[string]map[string]bool // policyID → target set

	// Mutations is the ordered log of mutating calls, e.g.
	// "CreatePolicy(DenyLeaveOrg)" or "Attach(p-1,ou-9)".
	Mutations []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies:    make(map[string]*RemotePolicy),
		nodes:       make(map[string]*HierarchyNode),
		attachments: make(map[string]map[string]bool),
	}
}

// SeedPolicy inserts a policy with a fixed id, bypassing the mutation log.
func (s *MemoryStore) SeedPolicy(p RemotePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.policies[p.ID] = &cp
}

// SeedNode inserts a hierarchy node with a fixed id, bypassing the
// mutation log. The root is a node with an empty parent id.
func (s *MemoryStore) SeedNode(n HierarchyNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := n
	s.nodes[n.ID] = &cp
}

// SeedAttachment binds a policy to a target, bypassing the mutation log.
func (s *MemoryStore) SeedAttachment(policyID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachments[policyID] == nil {
		s.attachments[policyID] = make(map[string]bool)
	}
	s.attachments[policyID][targetID] = true
}

// Attachments returns the sorted target ids a policy is attached to.
func (s *MemoryStore) Attachments(policyID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.attachments[policyID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PolicyByName returns the stored policy with the given name, if any.
func (s *MemoryStore) PolicyByName(name string) (RemotePolicy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.policies {
		if p.Name == name {
			return *p, true
		}
	}
	return RemotePolicy{}, false
}

// CheckSession implements PolicyStore.
func (s *MemoryStore) CheckSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SessionErr
}

// ListPolicies implements PolicyStore.
func (s *MemoryStore) ListPolicies(ctx context.Context, cursor string) ([]RemotePolicy, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListPolicies"); err != nil {
		return nil, "", err
	}

	all := make([]RemotePolicy, 0, len(s.policies))
	for _, p := range s.policies {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return page(all, cursor, s.PageSize)
}

// CreatePolicy implements PolicyStore.
func (s *MemoryStore) CreatePolicy(ctx context.Context, name, description, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreatePolicy"); err != nil {
		return "", err
	}

	id := "p-" + uuid.NewString()
	s.policies[id] = &RemotePolicy{ID: id, Name: name, Description: description, Content: content}
	s.Mutations = append(s.Mutations, "CreatePolicy("+name+")")
	return id, nil
}

// UpdatePolicy implements PolicyStore.
func (s *MemoryStore) UpdatePolicy(ctx context.Context, id, name, description, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdatePolicy"); err != nil {
		return err
	}

	p, ok := s.policies[id]
	if !ok {
		return &NotFoundError{Kind: "policy", ID: id}
	}
	p.Name = name
	p.Description = description
	p.Content = content
	s.Mutations = append(s.Mutations, "UpdatePolicy("+id+")")
	return nil
}

// ListRoots implements PolicyStore.
func (s *MemoryStore) ListRoots(ctx context.Context, cursor string) ([]HierarchyNode, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListRoots"); err != nil {
		return nil, "", err
	}

	var roots []HierarchyNode
	for _, n := range s.nodes {
		if n.ParentID == "" {
			roots = append(roots, *n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })

	return page(roots, cursor, s.PageSize)
}

// ListChildren implements PolicyStore.
func (s *MemoryStore) ListChildren(ctx context.Context, parentID, cursor string) ([]HierarchyNode, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListChildren"); err != nil {
		return nil, "", err
	}

	var children []HierarchyNode
	for _, n := range s.nodes {
		if n.ParentID == parentID {
			children = append(children, *n)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })

	return page(children, cursor, s.PageSize)
}

// ListAttachments implements PolicyStore.
func (s *MemoryStore) ListAttachments(ctx context.Context, policyID, cursor string) ([]string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListAttachments"); err != nil {
		return nil, "", err
	}

	var targets []string
	for id := range s.attachments[policyID] {
		targets = append(targets, id)
	}
	sort.Strings(targets)

	return page(targets, cursor, s.PageSize)
}

// Attach implements PolicyStore.
func (s *MemoryStore) Attach(ctx context.Context, policyID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Attach"); err != nil {
		return err
	}

	if s.attachments[policyID] == nil {
		s.attachments[policyID] = make(map[string]bool)
	}
	s.attachments[policyID][targetID] = true
	s.Mutations = append(s.Mutations, "Attach("+policyID+","+targetID+")")
	return nil
}

// Detach implements PolicyStore.
func (s *MemoryStore) Detach(ctx context.Context, policyID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Detach"); err != nil {
		return err
	}

	delete(s.attachments[policyID], targetID)
	s.Mutations = append(s.Mutations, "Detach("+policyID+","+targetID+")")
	return nil
}

// failure returns the injected error for op, if any. Callers hold s.mu.
func (s *MemoryStore) failure(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail[op]
}

// page slices items according to the cursor and page size. The cursor is
// the stringified start offset; an empty next cursor terminates.
func page[T any](items []T, cursor string, size int) ([]T, string, error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, "", &RemoteCallError{Op: "List", Cause: errInvalidCursor(cursor)}
		}
		start = n
	}
	if start >= len(items) {
		return nil, "", nil
	}

	if size <= 0 || start+size >= len(items) {
		return items[start:], "", nil
	}
	return items[start : start+size], strconv.Itoa(start + size), nil
}

type errInvalidCursor string

func (e errInvalidCursor) Error() string {
	return "invalid pagination cursor " + strconv.Quote(string(e))
}
