package telephony

import (
	"strings"
	"testing"
	"time"
)

func TestNewConferenceName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	name := NewConferenceName(now)

	if !strings.HasPrefix(name, "dialer-1700000000-") {
		t.Fatalf("unexpected conference name %q", name)
	}
	suffix := strings.TrimPrefix(name, "dialer-1700000000-")
	if len(suffix) != 12 {
		t.Fatalf("suffix %q has length %d, want 12", suffix, len(suffix))
	}

	other := NewConferenceName(now)
	if other == name {
		t.Fatalf("two names generated in the same second collided: %q", name)
	}
}

func TestExtractCallRef(t *testing.T) {
	ref, ok := ExtractCallRef("dialer-1700000000-abc123xyz")
	if !ok {
		t.Fatalf("conforming name rejected")
	}
	if ref != "1700000000-abc123xyz" {
		t.Fatalf("ref = %q, want %q", ref, "1700000000-abc123xyz")
	}
}

func TestExtractCallRefRejectsForeignNames(t *testing.T) {
	bad := []string{
		"support-room-7",
		"dialer-",
		"dialer-abc-123",
		"dialer-1700000000",
		"dialer-1700000000-",
		"conference-1700000000-abc123xyz",
		"",
	}
	for _, name := range bad {
		if ref, ok := ExtractCallRef(name); ok {
			t.Errorf("ExtractCallRef(%q) = %q, true; want rejection", name, ref)
		}
	}
}
