package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"taigabot/internal/config"
	"taigabot/internal/relay"
)

type fileDoc struct {
	Users map[string]fileUser `json:"users"`
}

type fileUser struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	// TelegramID may be written as a number or a string.
	TelegramID    json.RawMessage `json:"telegram_id"`
	Notifications *filePrefs      `json:"notifications,omitempty"`
}

// filePrefs uses pointers so a missing flag can default to true.
type filePrefs struct {
	Mention           *bool `json:"mention"`
	Comment           *bool `json:"comment"`
	DescriptionChange *bool `json:"description_change"`
	StatusChange      *bool `json:"status_change"`
	Assignment        *bool `json:"assignment"`
}

func (p *filePrefs) resolve() relay.Preferences {
	out := relay.AllPreferences()
	if p == nil {
		return out
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.Mention, p.Mention)
	set(&out.Comment, p.Comment)
	set(&out.DescriptionChange, p.DescriptionChange)
	set(&out.StatusChange, p.StatusChange)
	set(&out.Assignment, p.Assignment)
	return out
}

// ReadFile parses the users file at path.
func ReadFile(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes users file bytes. The format follows the path extension.
// Unknown fields are rejected; a user with an unusable telegram_id is kept
// and reported by Problems, the resolver skips it.
func Parse(path string, b []byte) (*Snapshot, error) {
	var doc fileDoc
	if err := config.DecodeStrict(path, b, &doc); err != nil {
		return nil, fmt.Errorf("users file %s: %w", path, err)
	}

	users := make([]relay.User, 0, len(doc.Users))
	for id, fu := range doc.Users {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("users file %s: empty user id", path)
		}
		addr, err := telegramID(fu.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("users file %s: user %s: telegram_id: %w", path, id, err)
		}
		users = append(users, relay.User{
			ID:       id,
			Username: strings.TrimSpace(fu.Username),
			FullName: strings.TrimSpace(fu.FullName),
			Address:  addr,
			Prefs:    fu.Notifications.resolve(),
		})
	}
	return NewSnapshot(users), nil
}

// telegramID accepts a JSON number or string and returns its text form.
func telegramID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("expected a number or a string, got %s", raw)
}
