package directory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"taigabot/internal/relay"
)

// Snapshot is an immutable set of users. It implements relay.Directory.
type Snapshot struct {
	users []relay.User
	byID  map[string]int
}

var _ relay.Directory = (*Snapshot)(nil)

// NewSnapshot copies users and orders them by id, numeric ids numerically
// and before any non-numeric id. Later duplicates of an id are dropped.
func NewSnapshot(users []relay.User) *Snapshot {
	cp := make([]relay.User, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		cp = append(cp, u)
	}
	sort.SliceStable(cp, func(i, j int) bool { return idLess(cp[i].ID, cp[j].ID) })

	s := &Snapshot{users: cp, byID: make(map[string]int, len(cp))}
	for i, u := range cp {
		s.byID[u.ID] = i
	}
	return s
}

func idLess(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.users)
}

// Users returns a copy in resolution order.
func (s *Snapshot) Users() []relay.User {
	if s == nil {
		return nil
	}
	return append([]relay.User(nil), s.users...)
}

func (s *Snapshot) ByID(id string) (relay.User, bool) {
	if s == nil {
		return relay.User{}, false
	}
	i, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return relay.User{}, false
	}
	return s.users[i], true
}

// ByName returns the first user, in id order, whose username or full name
// equals name.
func (s *Snapshot) ByName(name string) (relay.User, bool) {
	if s == nil || name == "" {
		return relay.User{}, false
	}
	for _, u := range s.users {
		if u.Username == name || u.FullName == name {
			return u, true
		}
	}
	return relay.User{}, false
}

// Problem is a non-fatal issue found in a loaded users file.
type Problem struct {
	UserID  string
	Message string
}

func (p Problem) String() string { return fmt.Sprintf("user %s: %s", p.UserID, p.Message) }

// Problems lists entries that will never receive notifications or that make
// name resolution ambiguous.
func (s *Snapshot) Problems() []Problem {
	if s == nil {
		return nil
	}
	var out []Problem
	firstByName := map[string]string{}
	for _, u := range s.users {
		if !relay.ValidAddress(u.Address) {
			msg := "telegram_id is missing"
			if u.Address != "" {
				msg = fmt.Sprintf("telegram_id %q is not a numeric chat id", u.Address)
			}
			out = append(out, Problem{UserID: u.ID, Message: msg})
		}
		if u.Username == "" {
			out = append(out, Problem{UserID: u.ID, Message: "username is empty, @mentions cannot reach this user"})
			continue
		}
		if first, dup := firstByName[u.Username]; dup {
			out = append(out, Problem{UserID: u.ID, Message: fmt.Sprintf("username %q is also used by user %s, mentions resolve to %s", u.Username, first, first)})
			continue
		}
		firstByName[u.Username] = u.ID
	}
	return out
}
