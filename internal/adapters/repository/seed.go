package repository

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/okian/peerfeedback/internal/domain/model"
)

type seedUser struct {
	model.User `yaml:",inline"`
	// Password is hashed at load time; use password_hash for stored hashes.
	Password string `yaml:"password"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

// LoadSeed reads a YAML user directory from path.
func LoadSeed(path string) ([]model.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data, bcrypt.DefaultCost)
}

// ParseSeed decodes a YAML user directory. Plain passwords are hashed with
// the given bcrypt cost and never kept.
func ParseSeed(data []byte, cost int) ([]model.User, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	users := make([]model.User, 0, len(f.Users))
	for _, su := range f.Users {
		u := su.User
		if su.Password != "" {
			if u.PasswordHash != "" {
				return nil, fmt.Errorf("user %q: both password and password_hash set", u.ID)
			}
			h, err := bcrypt.GenerateFromPassword([]byte(su.Password), cost)
			if err != nil {
				return nil, fmt.Errorf("user %q: hash password: %w", u.ID, err)
			}
			u.PasswordHash = string(h)
		}
		users = append(users, u)
	}
	return users, nil
}
