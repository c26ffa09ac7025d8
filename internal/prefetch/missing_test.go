package prefetch

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

func TestMissingRegions(t *testing.T) {
	tests := []struct {
		name        string
		request     region.Rect
		cached      region.Rect
		wantMissing []region.Rect
		wantDelta   Metrics
	}{
		{
			name:        "cold cache",
			request:     region.New(0, 0, 256, 256),
			cached:      region.Rect{},
			wantMissing: []region.Rect{region.New(0, 0, 256, 256)},
			wantDelta:   Metrics{ProcessedPixels: 65536, MissedGuesses: 65536},
		},
		{
			name:      "full hit",
			request:   region.New(512, 0, 256, 256),
			cached:    region.New(512, 0, 256, 256),
			wantDelta: Metrics{ProcessedPixels: 65536, GoodGuesses: 65536},
		},
		{
			name:      "contained in larger slot",
			request:   region.New(10, 10, 10, 10),
			cached:    region.New(0, 0, 100, 100),
			wantDelta: Metrics{ProcessedPixels: 100, GoodGuesses: 100, ExtraGuesses: 9900},
		},
		{
			name:        "disjoint slot",
			request:     region.New(256, 0, 256, 256),
			cached:      region.New(0, 0, 256, 256),
			wantMissing: []region.Rect{region.New(256, 0, 256, 256)},
			wantDelta:   Metrics{ProcessedPixels: 65536, MissedGuesses: 65536, ExtraGuesses: 65536},
		},
		{
			name:        "half overlap",
			request:     region.New(0, 0, 256, 256),
			cached:      region.New(128, 0, 256, 256),
			wantMissing: []region.Rect{region.New(0, 0, 128, 256)},
			wantDelta: Metrics{
				ProcessedPixels: 65536,
				GoodGuesses:     32768,
				MissedGuesses:   32768,
				ExtraGuesses:    32768,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, delta := missingRegions(tt.request, tt.cached)
			if diff := cmp.Diff(tt.wantMissing, missing); diff != "" {
				t.Errorf("missing regions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDelta, delta); diff != "" {
				t.Errorf("metrics delta mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingRegions_Coverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 1000; i++ {
		r := region.New(rng.IntN(100), rng.IntN(100), rng.IntN(64)+1, rng.IntN(64)+1)
		k := region.New(rng.IntN(160)-30, rng.IntN(160)-30, rng.IntN(80), rng.IntN(80))

		missing, delta := missingRegions(r, k)
		overlap, touches := region.Intersect(k, r)

		if !touches {
			if diff := cmp.Diff([]region.Rect{r}, missing); diff != "" {
				t.Fatalf("case %d: non-touching slot %v: (-want +got):\n%s", i, k, diff)
			}
			continue
		}
		if region.Contains(k, r) && len(missing) != 0 {
			t.Fatalf("case %d: contained request produced %v", i, missing)
		}

		sum := 0
		for _, m := range missing {
			sum += region.Area(m)
		}
		if sum+region.Area(overlap) != region.Area(r) {
			t.Fatalf("case %d: missing %d + overlap %d != request %d", i, sum, region.Area(overlap), region.Area(r))
		}
		if delta.GoodGuesses+delta.MissedGuesses != delta.ProcessedPixels {
			t.Fatalf("case %d: good+missed != processed: %+v", i, delta)
		}
	}
}

func TestMetrics_Percentages(t *testing.T) {
	var m Metrics
	if m.PercentGood() != 0 || m.PercentMissed() != 0 || m.PercentExtra() != 0 {
		t.Error("empty metrics should report 0%")
	}

	m = Metrics{ProcessedPixels: 200, GoodGuesses: 150, MissedGuesses: 50, ExtraGuesses: 300}
	if got := m.PercentGood(); got != 75 {
		t.Errorf("PercentGood = %v, want 75", got)
	}
	if got := m.PercentMissed(); got != 25 {
		t.Errorf("PercentMissed = %v, want 25", got)
	}
	if got := m.PercentExtra(); got != 150 {
		t.Errorf("PercentExtra = %v, want 150", got)
	}
}
