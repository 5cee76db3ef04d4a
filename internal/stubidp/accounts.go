// AngelaMos | 2026
// accounts.go

package stubidp

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/civiclens/console-client/internal/identity"
)

var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         identity.Role
	TenantID     *string
	UserType     string
	Permissions  []string
}

func (a *Account) Principal() *identity.Principal {
	return &identity.Principal{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		TenantID:    a.TenantID,
		UserType:    a.UserType,
		Permissions: identity.NormalizePermissions(a.Permissions),
	}
}

// AccountStore is an in-memory account table keyed by email. Good
// enough for a development double; the production identity service
// owns the real one.
type AccountStore struct {
	mu       sync.RWMutex
	byEmail  map[string]*Account
	byUserID map[string]*Account
}

func NewAccountStore(accounts []*Account) *AccountStore {
	s := &AccountStore{
		byEmail:  make(map[string]*Account, len(accounts)),
		byUserID: make(map[string]*Account, len(accounts)),
	}
	for _, a := range accounts {
		s.byEmail[strings.ToLower(a.Email)] = a
		s.byUserID[a.ID] = a
	}
	return s
}

func (s *AccountStore) GetByEmail(email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *AccountStore) GetByID(id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byUserID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *AccountStore) UpdatePassword(userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byUserID[userID]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

type fixture struct {
	email       string
	name        string
	password    string
	role        identity.Role
	tenantID    string
	userType    string
	permissions []string
}

var devFixtures = []fixture{
	{
		email:    "root@civiclens.dev",
		name:     "Platform Root",
		password: "rootpass-dev-1",
		role:     identity.RoleSuperAdmin,
		userType: "platform",
		permissions: []string{
			"tenants:read", "tenants:write",
			"issues:read", "reports:read",
		},
	},
	{
		email:       "admin@springfield.civiclens.dev",
		name:        "Tenant Admin",
		password:    "adminpass-dev-1",
		role:        identity.RoleAdmin,
		tenantID:    "tenant-springfield",
		userType:    "staff",
		permissions: []string{"issues:read", "issues:write", "reports:read"},
	},
	{
		email:       "agent@springfield.civiclens.dev",
		name:        "Field Agent",
		password:    "agentpass-dev-1",
		role:        identity.RoleFieldAgent,
		tenantID:    "tenant-springfield",
		userType:    "staff",
		permissions: []string{"issues:read", "issues:write"},
	},
	{
		email:       "member@springfield.civiclens.dev",
		name:        "Constituent Member",
		password:    "memberpass-dev-1",
		role:        identity.RoleMember,
		tenantID:    "tenant-springfield",
		userType:    "constituent",
		permissions: []string{"issues:read"},
	},
}

// DevAccounts seeds the fixture accounts every local environment gets.
// Passwords are hashed at startup so the login path exercises the same
// verification as real credentials would.
func DevAccounts() ([]*Account, error) {
	accounts := make([]*Account, 0, len(devFixtures))
	for _, f := range devFixtures {
		hash, err := HashPassword(f.password)
		if err != nil {
			return nil, fmt.Errorf("hash fixture password: %w", err)
		}

		account := &Account{
			ID:           uuid.New().String(),
			Email:        f.email,
			Name:         f.name,
			PasswordHash: hash,
			Role:         f.role,
			UserType:     f.userType,
			Permissions:  f.permissions,
		}
		if f.tenantID != "" {
			tenantID := f.tenantID
			account.TenantID = &tenantID
		}

		accounts = append(accounts, account)
	}

	return accounts, nil
}
