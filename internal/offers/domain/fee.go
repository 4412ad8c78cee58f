package domain

// Feed types determine the fee schedule of a product listing.
const (
	FeedTypeDiscover  = "discover"
	FeedTypeCommunity = "community"
)

// Fee schedule in basis points with a per-feed floor in cents.
const (
	discoverFeeBps     = 1500
	discoverFloorCents = 500
	standardFeeBps     = 500
	standardFloorCents = 200
)

// FeeBreakdown is the settlement split for an accepted offer.
type FeeBreakdown struct {
	PlatformFeeCents  int64
	SellerPayoutCents int64
}

// ComputeFee returns the platform fee and seller payout for an accepted
// amount under the given feed type. Discover listings pay 15% with a
// 5.00 floor, everything else 5% with a 2.00 floor. The payout is not
// clamped at zero: amounts below the floor produce a negative payout,
// matching the historical fee schedule.
func ComputeFee(amountCents int64, feedType string) FeeBreakdown {
	bps := int64(standardFeeBps)
	floor := int64(standardFloorCents)
	if feedType == FeedTypeDiscover {
		bps = discoverFeeBps
		floor = discoverFloorCents
	}

	// Round half up on the bps product.
	fee := (amountCents*bps + 5000) / 10000
	if fee < floor {
		fee = floor
	}

	return FeeBreakdown{
		PlatformFeeCents:  fee,
		SellerPayoutCents: amountCents - fee,
	}
}
