package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/pkg"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidEmail     = errors.New("invalid email")
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitzero"`
	LoginCount   int       `json:"login_count"`
}

// UsersFile keeps the user accounts in a flat JSON file, passwords
// stored as bcrypt hashes only.
type UsersFile struct {
	mutex sync.Mutex
	path  string
}

func NewUsersFile(path string) (*UsersFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}

	repo := &UsersFile{path: path}
	if exists, _ := pkg.PathExists(path, false); !exists {
		if err := repo.save([]User{}); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// Seed creates the user if missing, leaving existing accounts untouched.
func (u *UsersFile) Seed(username, password string) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	users, err := u.load()
	if err != nil {
		return err
	}
	for _, user := range users {
		if user.Username == username {
			return nil
		}
	}

	hash, err := pkg.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users = append(users, User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleAdmin,
		FullName:     titleCase(username),
		CreatedAt:    time.Now(),
	})

	log.Debugf("seeding admin user: %s", username)
	return u.save(users)
}

func (u *UsersFile) Get(username string) (*User, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	users, err := u.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// Authenticate checks the credentials and bumps the login stats on success.
func (u *UsersFile) Authenticate(username, password string) (*User, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	users, err := u.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username != username {
			continue
		}
		if !pkg.CheckPasswordHash(password, users[i].PasswordHash) {
			return nil, ErrWrongCredentials
		}

		users[i].LastLogin = time.Now()
		users[i].LoginCount++
		if err := u.save(users); err != nil {
			return nil, err
		}
		return &users[i], nil
	}
	return nil, ErrWrongCredentials
}

func (u *UsersFile) Create(username, password, email, fullName string) (*User, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if email != "" && !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if fullName == "" {
		fullName = titleCase(username)
	}

	users, err := u.load()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.Username == username {
			return nil, ErrUserExists
		}
	}

	hash, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	newUser := User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		Email:        email,
		FullName:     fullName,
		CreatedAt:    time.Now(),
	}
	users = append(users, newUser)
	if err := u.save(users); err != nil {
		return nil, err
	}
	return &newUser, nil
}

func (u *UsersFile) ChangePassword(username, oldPassword, newPassword string) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	users, err := u.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Username != username {
			continue
		}
		if !pkg.CheckPasswordHash(oldPassword, users[i].PasswordHash) {
			return ErrWrongCredentials
		}
		hash, err := pkg.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		users[i].PasswordHash = hash
		return u.save(users)
	}
	return ErrUserNotFound
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (u *UsersFile) load() ([]User, error) {
	data, err := os.ReadFile(u.path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(data) == 0 {
		return []User{}, nil
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("unmarshal users file: %w", err)
	}
	return users, nil
}

func (u *UsersFile) save(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if err := os.WriteFile(u.path, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}
