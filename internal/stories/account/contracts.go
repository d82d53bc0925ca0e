package account

import (
	"context"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/payload"
)

type (
	Backend interface {
		CallWithFallback(ctx context.Context, path string, fields payload.Object, fallback *backend.Fallback) (*backend.Response, error)
	}

	Localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}
)
