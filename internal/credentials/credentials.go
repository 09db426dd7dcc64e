// Package credentials checks logins against the static user list shipped
// with the dashboard.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// Record is one username/password pair. Missing fields decode as "".
type Record struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// File is the on-disk layout: one list per role.
type File struct {
	Users []Record `json:"users"`
	Admin []Record `json:"admin"`
}

// Store holds the credential lists for the process lifetime. It is never
// mutated after Load.
type Store struct {
	lists map[models.Role][]Record
}

// New builds a store from already decoded lists
func New(f File) *Store {
	return &Store{
		lists: map[models.Role][]Record{
			models.RoleUser:  f.Users,
			models.RoleAdmin: f.Admin,
		},
	}
}

// Load reads the credential file
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	return New(f), nil
}

// Authenticate reports whether any record of role matches. The username is
// trimmed on both sides, the password is compared verbatim, and empty input
// is looked up like any other value.
func (s *Store) Authenticate(role models.Role, username, password string) bool {
	want := strings.TrimSpace(username)
	for _, rec := range s.lists[role] {
		if strings.TrimSpace(rec.Username) == want && rec.Password == password {
			return true
		}
	}
	return false
}

// Count returns the number of records for role
func (s *Store) Count(role models.Role) int {
	return len(s.lists[role])
}
