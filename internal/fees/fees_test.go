package fees

import "testing"

func TestQuoteContract(t *testing.T) {
	tests := []struct {
		name          string
		hourlyRate    int64
		hours         int64
		feePercent    int64
		wantTotal     int64
		wantFee       int64
		wantCaregiver int64
	}{
		{"reference contract", 2500, 20, 10, 50000, 5000, 45000},
		{"odd total rounds fee up", 333, 1, 10, 333, 33, 300},
		{"half cent fee rounds away from zero", 1500, 1, 15, 1500, 225, 1275},
		{"single cent", 1, 1, 10, 1, 0, 1},
		{"fee half rounds up", 5, 1, 10, 5, 1, 4},
		{"zero hours", 2500, 0, 10, 0, 0, 0},
		{"zero percent", 2500, 20, 0, 50000, 0, 50000},
		{"full percent", 2500, 20, 100, 50000, 50000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := QuoteContract(tt.hourlyRate, tt.hours, tt.feePercent)
			if quote.TotalCents != tt.wantTotal {
				t.Errorf("TotalCents = %d, want %d", quote.TotalCents, tt.wantTotal)
			}
			if quote.PlatformFeeCents != tt.wantFee {
				t.Errorf("PlatformFeeCents = %d, want %d", quote.PlatformFeeCents, tt.wantFee)
			}
			if quote.CaregiverCents != tt.wantCaregiver {
				t.Errorf("CaregiverCents = %d, want %d", quote.CaregiverCents, tt.wantCaregiver)
			}
		})
	}
}

func TestQuoteContract_PartsAlwaysSum(t *testing.T) {
	// The split must sum exactly for every value, including odd-cent totals.
	for rate := int64(1); rate <= 101; rate += 10 {
		for hours := int64(1); hours <= 25; hours++ {
			for _, pct := range []int64{1, 7, 10, 15, 33, 50, 99} {
				quote := QuoteContract(rate, hours, pct)
				if quote.PlatformFeeCents+quote.CaregiverCents != quote.TotalCents {
					t.Fatalf("split of %d cents at %d%% does not sum: fee=%d caregiver=%d",
						quote.TotalCents, pct, quote.PlatformFeeCents, quote.CaregiverCents)
				}
			}
		}
	}
}
