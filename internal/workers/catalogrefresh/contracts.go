package catalogrefresh

import "context"

type Refresher interface {
	RefreshCatalogue(ctx context.Context, serviceID string) error
}
