package telephony

import (
	"strings"
	"testing"
)

func TestRenderConferenceTwiML(t *testing.T) {
	doc, err := RenderConferenceTwiML("dialer-1700000000-abc123xyz000")
	if err != nil {
		t.Fatalf("RenderConferenceTwiML: %v", err)
	}

	for _, want := range []string{
		"<Response>",
		"<Dial>",
		`startConferenceOnEnter="true"`,
		`endConferenceOnExit="true"`,
		`beep="false"`,
		"dialer-1700000000-abc123xyz000",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}

	if _, err := RenderConferenceTwiML(""); err == nil {
		t.Fatalf("empty conference name accepted")
	}
}

func TestRenderErrorTwiML(t *testing.T) {
	doc, err := RenderErrorTwiML("")
	if err != nil {
		t.Fatalf("RenderErrorTwiML: %v", err)
	}

	if !strings.Contains(doc, "We are sorry, your call cannot be connected at this time. Goodbye.") {
		t.Errorf("default apology missing:\n%s", doc)
	}
	if !strings.Contains(doc, "<Hangup") {
		t.Errorf("hangup verb missing:\n%s", doc)
	}
	if strings.Contains(doc, "<Dial") {
		t.Errorf("error document must not dial:\n%s", doc)
	}
}
