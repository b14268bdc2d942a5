package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/srodi/procscore/pkg/types"
)

// TestBannerPreview prints the banner so `go test ./pkg/ui -run TestBannerPreview` shows it.
func TestBannerPreview(t *testing.T) {
	fmt.Println(Banner())
}

func TestBannerIncludesWordmark(t *testing.T) {
	banner := Banner()
	if !strings.Contains(banner, "procscore") {
		t.Fatalf("banner missing procscore wordmark: %q", banner)
	}
	if !strings.Contains(banner, "process behavior scoring") {
		t.Fatalf("banner missing tagline")
	}
	lines := strings.Split(strings.TrimSpace(banner), "\n")
	if len(lines) < 8 {
		t.Fatalf("expected multi-line banner, got %d lines", len(lines))
	}
}

func TestBannerUsesGradientColors(t *testing.T) {
	banner := Banner()
	colors := []string{bold, flame, honeyOrange, beeYellow, mint, cobalt, deepIndigo, fuchsia}
	for _, color := range colors {
		if !strings.Contains(banner, color) {
			t.Fatalf("banner missing color code %q", color)
		}
	}
}

func TestTierEscapesHaveEqualWidth(t *testing.T) {
	header := Plain("TIER")
	overhead := len(header) - len("TIER")
	for _, tier := range []types.Tier{types.TierLow, types.TierMedium, types.TierHigh} {
		colored := Tier(tier)
		if got := len(colored) - len(tier.String()); got != overhead {
			t.Fatalf("%s: escape overhead %d, header overhead %d", tier, got, overhead)
		}
		if !strings.Contains(colored, tier.String()) {
			t.Fatalf("colored tier lost its label: %q", colored)
		}
	}
	if !strings.HasPrefix(Tier(types.TierHigh), red) {
		t.Fatalf("high tier should be red")
	}
}
