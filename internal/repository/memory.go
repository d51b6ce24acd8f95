package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/supportdesk/supportgate/internal/model"
)

// MemoryStore backs users, profiles, orders and roles with maps. It is used
// when no database DSN is configured and in tests. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   map[string]uint
	users    map[uint]*model.User
	profiles map[uint]*model.Profile // key: user id
	orders   map[uint]*model.Order
	roles    map[uint]*model.Role
	userRole map[uint][]uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   make(map[string]uint),
		users:    make(map[uint]*model.User),
		profiles: make(map[uint]*model.Profile),
		orders:   make(map[uint]*model.Order),
		roles:    make(map[uint]*model.Role),
		userRole: make(map[uint][]uint),
	}
}

func (s *MemoryStore) Users() *MemoryUserRepo       { return &MemoryUserRepo{s} }
func (s *MemoryStore) Profiles() *MemoryProfileRepo { return &MemoryProfileRepo{s} }
func (s *MemoryStore) Orders() *MemoryOrderRepo     { return &MemoryOrderRepo{s} }
func (s *MemoryStore) Roles() *MemoryRoleRepo       { return &MemoryRoleRepo{s} }

// next must be called with mu held.
func (s *MemoryStore) next(table string) uint {
	s.nextID[table]++
	return s.nextID[table]
}

// loadUser must be called with mu held.
func (s *MemoryStore) loadUser(id uint) *model.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	out := *u
	out.Profile = nil
	out.Orders = nil
	out.Roles = make([]model.Role, 0, len(s.userRole[id]))
	for _, rid := range s.userRole[id] {
		if r, ok := s.roles[rid]; ok {
			out.Roles = append(out.Roles, *r)
		}
	}
	return &out
}

type MemoryUserRepo struct{ s *MemoryStore }

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	u.ID = r.s.next("users")
	u.CreatedAt, u.UpdatedAt = now, now
	stored := *u
	stored.Profile, stored.Orders, stored.Roles = nil, nil, nil
	r.s.users[u.ID] = &stored
	return nil
}

func (r *MemoryUserRepo) List(_ context.Context, skip, limit int) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]uint, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*model.User, 0)
	for i, id := range ids {
		if i < skip {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.s.loadUser(id))
	}
	return out, nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.s.loadUser(id); u != nil {
		return u, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var match uint
	for id, u := range r.s.users {
		if strings.EqualFold(u.Email, email) && (match == 0 || id < match) {
			match = id
		}
	}
	if match == 0 {
		return nil, ErrNotFound
	}
	return r.s.loadUser(match), nil
}

func (r *MemoryUserRepo) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name = u.Name
	stored.Email = u.Email
	stored.Password = u.Password
	stored.UpdatedAt = time.Now().UTC()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.profiles, id)
	delete(r.s.userRole, id)
	for oid, o := range r.s.orders {
		if o.UserID == id {
			delete(r.s.orders, oid)
		}
	}
	return nil
}

func (r *MemoryUserRepo) ReplaceRoles(_ context.Context, userID uint, roles []model.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return ErrNotFound
	}
	ids := make([]uint, 0, len(roles))
	for _, role := range roles {
		if _, ok := r.s.roles[role.ID]; !ok {
			return ErrNotFound
		}
		ids = append(ids, role.ID)
	}
	r.s.userRole[userID] = ids
	return nil
}

type MemoryProfileRepo struct{ s *MemoryStore }

func (r *MemoryProfileRepo) GetByUserID(_ context.Context, userID uint) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryProfileRepo) Upsert(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.profiles[p.UserID]; ok {
		p.ID = existing.ID
	} else {
		p.ID = r.s.next("profiles")
	}
	stored := *p
	r.s.profiles[p.UserID] = &stored
	return nil
}

type MemoryOrderRepo struct{ s *MemoryStore }

func (r *MemoryOrderRepo) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	o.ID = r.s.next("orders")
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	r.s.orders[o.ID] = &stored
	return nil
}

func (r *MemoryOrderRepo) GetByID(_ context.Context, id uint) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *o
	return &out, nil
}

func (r *MemoryOrderRepo) ListByUser(_ context.Context, userID uint, skip, limit int) ([]*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := make([]*model.Order, 0)
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out := *o
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if skip >= len(matched) {
		return []*model.Order{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryOrderRepo) Update(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	stored.TotalAmount = o.TotalAmount
	stored.Status = o.Status
	stored.UpdatedAt = time.Now().UTC()
	o.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryOrderRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}

type MemoryRoleRepo struct{ s *MemoryStore }

func (r *MemoryRoleRepo) List(_ context.Context) ([]*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		copied := *role
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRoleRepo) Create(_ context.Context, role *model.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.findLocked(role.Name) != nil {
		return ErrDuplicate
	}
	role.ID = r.s.next("roles")
	stored := *role
	r.s.roles[role.ID] = &stored
	return nil
}

func (r *MemoryRoleRepo) GetOrCreate(_ context.Context, name string) (*model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing := r.findLocked(name); existing != nil {
		out := *existing
		return &out, nil
	}
	role := &model.Role{ID: r.s.next("roles"), Name: name}
	r.s.roles[role.ID] = role
	out := *role
	return &out, nil
}

func (r *MemoryRoleRepo) findLocked(name string) *model.Role {
	for _, role := range r.s.roles {
		if role.Name == name {
			return role
		}
	}
	return nil
}
