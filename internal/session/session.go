// Package session isolates the host-environment boundary: the opaque Telegram
// initData string and the dev fallback used when the app runs outside Telegram.
package session

import (
	"crypto/sha256"
	"encoding/binary"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/payload"
)

var ErrEmptyInitData = errors.New("init data is empty")

// Provider yields the initData forwarded with every backend request.
type Provider interface {
	InitData() string
}

// Static is a fixed initData value.
type Static string

func (s Static) InitData() string {
	return string(s)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() string

func (f ProviderFunc) InitData() string {
	return f()
}

// IsDev reports whether there is no host session, in which case callers serve
// mock data instead of calling the backend.
func IsDev(p Provider) bool {
	return p == nil || strings.TrimSpace(p.InitData()) == ""
}

// User is the subset of the signed "user" field the client cares about.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LanguageCode string
}

// ParseUser extracts the "user" JSON object from initData. The signature is
// not checked here; the backend does that.
func ParseUser(initData string) (User, bool) {
	query, err := url.ParseQuery(strings.TrimSpace(initData))
	if err != nil {
		return User{}, false
	}

	raw := payload.ParseObject([]byte(query.Get("user")))
	if raw == nil {
		return User{}, false
	}

	id, ok := payload.PositiveInt(raw.Get("id"))
	if !ok || id == 0 {
		return User{}, false
	}

	return User{
		ID:           id,
		Username:     raw.FirstString("username"),
		FirstName:    raw.FirstString("first_name"),
		LanguageCode: raw.FirstString("language_code"),
	}, true
}

// ResolveUserID returns the Telegram user id carried by initData. Bare numeric
// values and user_id/id/tg_user_id query keys are accepted too. Anything else
// maps to a stable hash so the same session always gets the same id.
func ResolveUserID(initData string) (int64, error) {
	trimmed := strings.TrimSpace(initData)
	if trimmed == "" {
		return 0, ErrEmptyInitData
	}

	if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil && parsed > 0 {
		return parsed, nil
	}

	if user, ok := ParseUser(trimmed); ok {
		return user.ID, nil
	}

	query, err := url.ParseQuery(trimmed)
	if err == nil && len(query) > 0 {
		for _, key := range []string{"user_id", "id", "tg_user_id"} {
			if value := query.Get(key); value != "" {
				parsed, parseErr := strconv.ParseInt(value, 10, 64)
				if parseErr == nil && parsed > 0 {
					return parsed, nil
				}
			}
		}
	}

	return fallbackUserID(trimmed), nil
}

func fallbackUserID(initData string) int64 {
	hash := sha256.Sum256([]byte(initData))
	v := binary.BigEndian.Uint64(hash[:8]) & 0x7fffffffffffffff
	if v == 0 {
		v = 1
	}
	return int64(v)
}
