package purchase

import (
	"context"
	"time"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/payload"
)

type (
	Backend interface {
		Call(ctx context.Context, path string, fields payload.Object) (*backend.Response, error)
	}

	Localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}

	// Scheduler defers preview requests. Tests swap in a manual clock.
	Scheduler interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	Timer interface {
		Stop() bool
	}
)
