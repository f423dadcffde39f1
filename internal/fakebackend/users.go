package fakebackend

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/smartcane-client/identity"
	"golang.org/x/crypto/bcrypt"
)

const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

var (
	errUserNotFound = errors.New("user not found")
	errEmailTaken   = errors.New("email already registered")
)

// User is an account held by the fake backend.
type User struct {
	ID           string
	Email        string
	Nickname     string
	Name         string
	BirthDate    string
	PhoneNumber  string
	PasswordHash []byte
	Roles        identity.Roles
	Status       string
	Points       float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Roles.Match(identity.RoleAdmin, identity.MatchExact)
}

// identityJSON is the /api/identity/me body.
func (u *User) identityJSON() map[string]any {
	return map[string]any{
		"id":          u.ID,
		"email":       u.Email,
		"nickname":    u.Nickname,
		"name":        u.Name,
		"birthDate":   u.BirthDate,
		"phoneNumber": u.PhoneNumber,
		"roles":       []string(u.Roles),
		"createdAt":   u.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// adminJSON is one row of /api/admin/users.
func (u *User) adminJSON() map[string]any {
	return map[string]any{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"phoneNumber": u.PhoneNumber,
		"roles":       []string(u.Roles),
		"status":      u.Status,
		"createdAt":   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// UserRepo is an in-memory account table indexed by id and email.
type UserRepo struct {
	users    map[string]*User
	emailIDs map[string]string
	lock     sync.RWMutex
	now      func() time.Time
}

func NewUserRepo(now func() time.Time) *UserRepo {
	return &UserRepo{
		users:    make(map[string]*User),
		emailIDs: make(map[string]string),
		now:      now,
	}
}

// Create hashes the password and stores a new ACTIVE account.
func (ur *UserRepo) Create(u User, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(u.Email)

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.emailIDs[email]; ok {
		return nil, errEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if len(u.Roles) == 0 {
		u.Roles = identity.NewRoles(identity.RoleUser)
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	u.Email = email
	u.PasswordHash = hash
	u.CreatedAt = ur.now()
	u.UpdatedAt = u.CreatedAt

	stored := u
	ur.users[stored.ID] = &stored
	ur.emailIDs[email] = stored.ID
	return stored.clone(), nil
}

func (ur *UserRepo) GetByEmail(email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[normalizeEmail(email)]
	if !ok {
		return nil, errUserNotFound
	}
	return ur.users[id].clone(), nil
}

func (ur *UserRepo) GetByID(id string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	return u.clone(), nil
}

// List returns every account ordered by creation time, then id.
func (ur *UserRepo) List() []*User {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*User, 0, len(ur.users))
	for _, u := range ur.users {
		list = append(list, u.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Update applies fn to the stored account under the write lock.
func (ur *UserRepo) Update(id string, fn func(u *User) error) (*User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = ur.now()
	return u.clone(), nil
}

func (u *User) clone() *User {
	c := *u
	c.Roles = append(identity.Roles(nil), u.Roles...)
	return &c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
