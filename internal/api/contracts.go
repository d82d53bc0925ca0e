package api

import (
	"context"

	"kitsura-miniapp/internal/stories/vendor"
)

type VendorService interface {
	CreateSteamTopup(ctx context.Context, req vendor.SteamRequest, origin string) (any, error)
	ListVouchers(ctx context.Context, serviceID string) (any, error)
	CreateVoucherOrder(ctx context.Context, req vendor.VoucherRequest, origin string) (any, error)
	Stats(ctx context.Context) *vendor.Stats
}
