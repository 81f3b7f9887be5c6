package relay

// Preferences are per-category opt-ins. All default to true.
type Preferences struct {
	Mention           bool
	Comment           bool
	DescriptionChange bool
	StatusChange      bool
	Assignment        bool
}

// AllPreferences has every category enabled.
func AllPreferences() Preferences {
	return Preferences{Mention: true, Comment: true, DescriptionChange: true, StatusChange: true, Assignment: true}
}

func (p Preferences) Allows(c Category) bool {
	switch c {
	case CategoryMention:
		return p.Mention
	case CategoryComment:
		return p.Comment
	case CategoryDescriptionChange:
		return p.DescriptionChange
	case CategoryStatusChange:
		return p.StatusChange
	case CategoryAssignment:
		return p.Assignment
	default:
		return false
	}
}

// User is a directory entry. Address is the Telegram chat id as text.
type User struct {
	ID       string
	Username string
	FullName string
	Address  string
	Prefs    Preferences
}

// Directory looks users up. Implementations must be safe for concurrent reads
// and must return the same answer for the same input for their lifetime.
type Directory interface {
	ByID(id string) (User, bool)
	// ByName matches username or full name; the first match in a stable
	// order wins.
	ByName(name string) (User, bool)
}

// ValidAddress reports whether addr is a well-formed chat id: a non-empty
// string of ASCII digits.
func ValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	for i := 0; i < len(addr); i++ {
		if addr[i] < '0' || addr[i] > '9' {
			return false
		}
	}
	return true
}

// resolveIDs looks up ids and filters them for cat.
func resolveIDs(dir Directory, cat Category, ids []string) ([]User, []*SkipError) {
	return resolve(cat, ids, dir.ByID)
}

// resolveNames looks up usernames or full names and filters them for cat.
func resolveNames(dir Directory, cat Category, names []string) ([]User, []*SkipError) {
	return resolve(cat, names, dir.ByName)
}

// resolve keeps the first occurrence of each user. Candidates are dropped when
// unknown, when the address is unusable, or when cat is switched off.
func resolve(cat Category, refs []string, lookup func(string) (User, bool)) ([]User, []*SkipError) {
	var (
		users   []User
		skipped []*SkipError
		seen    = make(map[string]struct{}, len(refs))
	)
	for _, ref := range refs {
		u, ok := lookup(ref)
		if !ok {
			skipped = append(skipped, &SkipError{Category: cat, Ref: ref, Kind: ErrUnresolvedRecipient})
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		switch {
		case !ValidAddress(u.Address):
			skipped = append(skipped, &SkipError{Category: cat, Ref: ref, UserID: u.ID, Kind: ErrInvalidAddress})
		case !u.Prefs.Allows(cat):
			skipped = append(skipped, &SkipError{Category: cat, Ref: ref, UserID: u.ID, Kind: ErrPreferenceDisabled})
		default:
			users = append(users, u)
		}
	}
	return users, skipped
}
