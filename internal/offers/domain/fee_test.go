package domain

import "testing"

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		feedType   string
		wantFee    int64
		wantPayout int64
	}{
		{"discover percentage", 10000, FeedTypeDiscover, 1500, 8500},
		{"discover floor", 2000, FeedTypeDiscover, 500, 1500},
		{"community percentage", 10000, FeedTypeCommunity, 500, 9500},
		{"community floor", 2000, FeedTypeCommunity, 200, 1800},
		{"unknown feed uses standard schedule", 10000, "live", 500, 9500},
		{"accepted scenario 80 on discover", 8000, FeedTypeDiscover, 1200, 6800},
		{"payout goes negative below floor", 100, FeedTypeCommunity, 200, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFee(tt.amount, tt.feedType)
			if got.PlatformFeeCents != tt.wantFee {
				t.Errorf("platform fee = %d, want %d", got.PlatformFeeCents, tt.wantFee)
			}
			if got.SellerPayoutCents != tt.wantPayout {
				t.Errorf("seller payout = %d, want %d", got.SellerPayoutCents, tt.wantPayout)
			}
		})
	}
}
