package backend

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"kitsura-miniapp/internal/payload"
)

const (
	UnauthorizedTitle   = "Authorization Error"
	UnauthorizedMessage = "Authorization failed. Please open the mini app from Telegram."
	DefaultTitle        = "Error"
)

// Error is a user-facing failure built from a backend response. Message is
// always non-empty.
type Error struct {
	Status      int
	Title       string
	Message     string
	Code        string
	PurchaseURL string
}

func (e *Error) Error() string {
	return e.Message
}

// Fallback overrides the generic title and message used for non-401 statuses
// when the body carries none.
type Fallback struct {
	Title   string
	Message string
}

// ExtractError builds an Error from a status and a leniently parsed body.
// A string detail is the message; an object detail contributes message, title,
// code and purchase URL independently.
func ExtractError(status int, body any, fallback *Fallback) *Error {
	e := &Error{Status: status}

	switch {
	case status == http.StatusUnauthorized:
		e.Title = UnauthorizedTitle
		e.Message = UnauthorizedMessage
	case fallback != nil:
		e.Title = fallback.Title
		e.Message = fallback.Message
	default:
		e.Title = DefaultTitle
		e.Message = fmt.Sprintf("Request failed (status %d)", status)
	}

	obj := payload.AsObject(body)
	if obj == nil {
		return e
	}

	purchaseURL := ""
	switch detail := obj.Get("detail").(type) {
	case string:
		if detail != "" {
			e.Message = detail
		}
	case payload.Object:
		if s, ok := detail.Get("message").(string); ok {
			e.Message = s
		} else if s, ok := obj.Get("message").(string); ok {
			e.Message = s
		}
		if s, ok := detail.Get("title").(string); ok {
			e.Title = s
		}
		if s, ok := detail.Get("code").(string); ok {
			e.Code = s
		}
		purchaseURL = detail.FirstString("purchase_url", "purchaseUrl")
	default:
		if s, ok := obj.Get("message").(string); ok {
			e.Message = s
		}
	}

	if s, ok := obj.Get("title").(string); ok {
		e.Title = s
	}
	if e.Code == "" {
		if s, ok := obj.Get("code").(string); ok {
			e.Code = s
		}
	}
	if purchaseURL == "" {
		purchaseURL = obj.FirstString("purchase_url", "purchaseUrl")
	}
	e.PurchaseURL = NormalizeURL(purchaseURL)

	if strings.TrimSpace(e.Message) == "" {
		e.Message = fmt.Sprintf("Request failed (status %d)", status)
	}

	return e
}

var schemePattern = regexp.MustCompile(`(?i)^(https?|happ|tg|ton):`)

// NormalizeURL trims u and prefixes https:// unless it already carries one of
// the schemes the app can open. Blank input yields "".
func NormalizeURL(u string) string {
	trimmed := strings.TrimSpace(u)
	if trimmed == "" {
		return ""
	}
	if schemePattern.MatchString(trimmed) {
		return trimmed
	}
	return "https://" + trimmed
}
