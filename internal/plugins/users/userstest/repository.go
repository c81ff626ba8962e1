// Package userstest provides an in-memory users.UserRepository for tests of
// the flows built on the user directory.
package userstest

import (
	"context"
	"sync"

	"github.com/keyxmakerx/identity/internal/plugins/users"
)

// Repository is a users.UserRepository held in memory. It enforces the same
// unique keys and token semantics as the MariaDB implementation.
type Repository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*users.User
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{byID: make(map[int64]*users.User)}
}

// Get returns a copy of the stored user with email, or nil.
func (r *Repository) Get(email string) *users.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *users.User) bool { return u.Email == email }); u != nil {
		cp := *u
		return &cp
	}
	return nil
}

// Put stores user as-is, assigning an ID.
func (r *Repository) Put(user users.User) *users.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = &user
	cp := user
	return &cp
}

func (r *Repository) Create(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(func(u *users.User) bool { return u.Email == user.Email || u.Subject == user.Subject }) != nil {
		return users.ErrEmailTaken
	}
	r.nextID++
	user.ID = r.nextID
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *Repository) FindByEmail(_ context.Context, email string) (*users.User, error) {
	return r.findCopy(func(u *users.User) bool { return u.Email == email })
}

func (r *Repository) FindBySubject(_ context.Context, subject string) (*users.User, error) {
	return r.findCopy(func(u *users.User) bool { return u.Subject == subject })
}

func (r *Repository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *users.User) bool { return u.Email == email }) != nil, nil
}

func (r *Repository) Activate(_ context.Context, email, token string) (bool, error) {
	return r.update(func(u *users.User) bool {
		return u.Email == email && u.ActivateToken != nil && *u.ActivateToken == token
	}, func(u *users.User) {
		u.Active = true
		u.ActivateToken = nil
	}), nil
}

func (r *Repository) AssignResetToken(_ context.Context, email, token string) (bool, error) {
	return r.update(func(u *users.User) bool { return u.Email == email }, func(u *users.User) {
		u.ResetPasswordToken = &token
	}), nil
}

func (r *Repository) AssignPassword(_ context.Context, email, token, passwordHash string) (bool, error) {
	return r.update(func(u *users.User) bool {
		return u.Email == email && u.ResetPasswordToken != nil && *u.ResetPasswordToken == token
	}, func(u *users.User) {
		u.PasswordHash = passwordHash
		u.ResetPasswordToken = nil
	}), nil
}

func (r *Repository) UpdateDetails(_ context.Context, subject string, details users.DetailsInput, passwordHash string) error {
	r.update(func(u *users.User) bool { return u.Subject == subject }, func(u *users.User) {
		u.Name = details.Name
		u.Company = details.Company
		u.Phone = details.Phone
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
	})
	return nil
}

func (r *Repository) find(match func(*users.User) bool) *users.User {
	for _, u := range r.byID {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *Repository) findCopy(match func(*users.User) bool) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.find(match)
	if u == nil {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) update(match func(*users.User) bool, apply func(*users.User)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.find(match)
	if u == nil {
		return false
	}
	apply(u)
	return true
}

var _ users.UserRepository = (*Repository)(nil)
