// Package userstore persists user records, preferences, and per-user
// watchlists as flat JSON files on disk.
//
// Layout under the data directory:
//
//	users/logindata.json            all account records
//	users/<name>_data/preferences.json
//	users/<name>_data/list1.json    personal watchlist tickers
//	users/<name>_data/<name>_list_info.json
//	users/<name>_data/account_info.txt
//	old_userdata/<name>_data_<ms>/  archived data of removed users
//
// Writes are whole-file and last-write-wins; a single mutex serialises all
// operations on one Store.
package userstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/7tzy/marketview/internal/domain"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrNotFound    = errors.New("user not found")
	ErrExists      = errors.New("username already exists")
	ErrBadPassword = errors.New("invalid credentials")
)

// Store is a flat-file user store rooted at a data directory.
type Store struct {
	mu   sync.Mutex
	root string
}

// New creates a Store rooted at dataDir, creating the users directory if
// needed.
func New(dataDir string) (*Store, error) {
	s := &Store{root: dataDir}
	if err := os.MkdirAll(s.usersDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating users dir: %w", err)
	}
	return s, nil
}

func (s *Store) usersDir() string {
	return filepath.Join(s.root, "users")
}

func (s *Store) loginDataPath() string {
	return filepath.Join(s.usersDir(), "logindata.json")
}

func (s *Store) userDir(username string) string {
	return filepath.Join(s.usersDir(), username+"_data")
}

// loginData is the shape of logindata.json.
type loginData struct {
	Users []domain.User `json:"users"`
}

// readLoginData loads logindata.json, treating a missing or unreadable file
// as an empty user set.
func (s *Store) readLoginData() loginData {
	data, err := os.ReadFile(s.loginDataPath())
	if err != nil {
		return loginData{}
	}
	var ld loginData
	if err := json.Unmarshal(data, &ld); err != nil {
		return loginData{}
	}
	return ld
}

func (s *Store) writeLoginData(ld loginData) error {
	data, err := json.MarshalIndent(ld, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.loginDataPath(), data, 0o644)
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// Authenticate checks a username/password pair against stored records.
// Passwords are compared in plain text, matching the system this replaces.
func (s *Store) Authenticate(username, password string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ld := s.readLoginData()
	for _, u := range ld.Users {
		if u.Username == username {
			if u.Password == password {
				return u, nil
			}
			return domain.User{}, ErrBadPassword
		}
	}
	return domain.User{}, ErrBadPassword
}

// CreateUser adds a new account record and provisions the user's data
// folder (empty watchlist, list info, account info).
func (s *Store) CreateUser(username, password, sourceIP, location string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ld := s.readLoginData()
	for _, u := range ld.Users {
		if u.Username == username {
			return domain.User{}, ErrExists
		}
	}

	now := domain.Timestamp(time.Now())
	user := domain.User{
		Username:  username,
		Password:  password,
		CreatedAt: now,
		SourceIP:  sourceIP,
		Location:  location,
	}
	ld.Users = append(ld.Users, user)
	if err := s.writeLoginData(ld); err != nil {
		return domain.User{}, fmt.Errorf("saving login data: %w", err)
	}

	if err := s.provisionUserDir(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// provisionUserDir creates the per-user folder with its initial files.
func (s *Store) provisionUserDir(u domain.User) error {
	dir := s.userDir(u.Username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating user dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "list1.json"), []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("creating watchlist: %w", err)
	}

	info := map[string]string{
		"listName":     u.Username + "'s watch list",
		"listType":     "watchlist",
		"createdAt":    u.CreatedAt,
		"lastModified": u.CreatedAt,
		"description":  "Personal watch list for " + u.Username,
	}
	infoData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, u.Username+"_list_info.json"), infoData, 0o644); err != nil {
		return fmt.Errorf("creating list info: %w", err)
	}

	account := fmt.Sprintf("Account Created: %s\nIP Address: %s\nCity: %s\nUsername: %s",
		u.CreatedAt, u.SourceIP, u.Location, u.Username)
	if err := os.WriteFile(filepath.Join(dir, "account_info.txt"), []byte(account), 0o644); err != nil {
		return fmt.Errorf("creating account info: %w", err)
	}
	return nil
}

// ListUsers returns all account records without passwords.
func (s *Store) ListUsers() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	ld := s.readLoginData()
	users := make([]domain.User, 0, len(ld.Users))
	for _, u := range ld.Users {
		u.Password = ""
		users = append(users, u)
	}
	return users
}

// RawLoginData returns the full stored record set, passwords included. Only
// the admin surface uses this.
func (s *Store) RawLoginData() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	ld := s.readLoginData()
	return map[string]any{"users": ld.Users}
}

// DeleteUser removes the account record and moves the user's data folder to
// the archive. Archived data is never deleted.
func (s *Store) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ld := s.readLoginData()
	idx := -1
	for i, u := range ld.Users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	ld.Users = append(ld.Users[:idx], ld.Users[idx+1:]...)
	if err := s.writeLoginData(ld); err != nil {
		return fmt.Errorf("saving login data: %w", err)
	}

	archiveRoot := filepath.Join(s.root, "old_userdata")
	if err := os.MkdirAll(archiveRoot, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	src := s.userDir(username)
	if _, err := os.Stat(src); err == nil {
		dst := filepath.Join(archiveRoot, fmt.Sprintf("%s_data_%d", username, time.Now().UnixMilli()))
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("archiving user data: %w", err)
		}
		// Tag the archive so repeated create/delete cycles of the same
		// username stay distinguishable.
		tag := []byte(uuid.NewString() + "\n")
		_ = os.WriteFile(filepath.Join(dst, ".archive_id"), tag, 0o644)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Preferences
// ---------------------------------------------------------------------------

// Preferences loads a user's stored preferences. A missing or corrupt file
// yields the defaults: preference reads never fail.
func (s *Store) Preferences(username string) domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.userDir(username), "preferences.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DefaultPreferences()
	}
	var p domain.Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.DefaultPreferences()
	}
	return p
}

// SavePreferences writes the whole preferences object for a user.
func (s *Store) SavePreferences(username string, showMarketOverview, showContent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.userDir(username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating user dir: %w", err)
	}

	p := domain.Preferences{
		Username:           username,
		ShowMarketOverview: showMarketOverview,
		ShowContent:        showContent,
		LastUpdated:        domain.Timestamp(time.Now()),
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "preferences.json"), data, 0o644)
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *Store) watchlistPath(username string) string {
	return filepath.Join(s.userDir(username), "list1.json")
}

// Watchlist returns the user's saved tickers. A missing file is an empty
// list.
func (s *Store) Watchlist(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWatchlist(username)
}

func (s *Store) readWatchlist(username string) []string {
	data, err := os.ReadFile(s.watchlistPath(username))
	if err != nil {
		return nil
	}
	var tickers []string
	if err := json.Unmarshal(data, &tickers); err != nil {
		return nil
	}
	return tickers
}

func (s *Store) writeWatchlist(username string, tickers []string) error {
	dir := s.userDir(username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating user dir: %w", err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	data, err := json.MarshalIndent(tickers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.watchlistPath(username), data, 0o644)
}

// AddToWatchlist appends tickers to the user's list, uppercasing and
// skipping duplicates. The merged list is returned.
func (s *Store) AddToWatchlist(username string, tickers []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.readWatchlist(username)
	seen := make(map[string]bool, len(current))
	for _, t := range current {
		seen[t] = true
	}
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		current = append(current, t)
	}
	if err := s.writeWatchlist(username, current); err != nil {
		return nil, err
	}
	return current, nil
}

// RemoveFromWatchlist removes a single ticker by exact (case-insensitive)
// match.
func (s *Store) RemoveFromWatchlist(username, ticker string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	current := s.readWatchlist(username)
	kept := current[:0]
	for _, t := range current {
		if t != ticker {
			kept = append(kept, t)
		}
	}
	if err := s.writeWatchlist(username, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ClearWatchlist empties the user's list.
func (s *Store) ClearWatchlist(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeWatchlist(username, []string{})
}
