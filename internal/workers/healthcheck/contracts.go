package healthcheck

import "context"

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error
