package relay

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// memDirectory is a fixed in-memory Directory.
type memDirectory struct {
	users []User
}

func newMemDirectory(users ...User) *memDirectory {
	cp := append([]User(nil), users...)
	sort.SliceStable(cp, func(i, j int) bool {
		a, _ := strconv.Atoi(cp[i].ID)
		b, _ := strconv.Atoi(cp[j].ID)
		return a < b
	})
	return &memDirectory{users: cp}
}

func (d *memDirectory) ByID(id string) (User, bool) {
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

func (d *memDirectory) ByName(name string) (User, bool) {
	for _, u := range d.users {
		if u.Username == name || (u.FullName != "" && u.FullName == name) {
			return u, true
		}
	}
	return User{}, false
}

func user(id, username, address string) User {
	return User{ID: id, Username: username, FullName: username, Address: address, Prefs: AllPreferences()}
}

type sent struct {
	Address string
	Text    string
}

// recorder is a Deliverer that remembers calls and can fail chosen addresses.
type recorder struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]error
}

func (r *recorder) Deliver(_ context.Context, address, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[address]; err != nil {
		return err
	}
	r.sent = append(r.sent, sent{Address: address, Text: text})
	return nil
}

func (r *recorder) Sent() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func ruLabels() Labels {
	l, _ := LookupLabels("ru")
	return l
}

func mustDecode(tb interface {
	Helper()
	Fatalf(string, ...any)
}, body string) Event {
	tb.Helper()
	ev, err := DecodeEvent([]byte(body))
	if err != nil {
		tb.Fatalf("decode: %v", err)
	}
	return ev
}
