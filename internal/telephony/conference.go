package telephony

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conference names are locally generated, one per call attempt, and are
// the only handle on a call before the provider assigns a call SID. The
// embedded ref ties conference lifecycle webhooks back to the status
// table, so the format is a contract with ExtractCallRef.
const conferencePrefix = "dialer-"

// NewConferenceName returns a fresh conference name of the form
// dialer-<unixSeconds>-<suffix>. The uuid-derived suffix keeps concurrent
// calls started in the same second from colliding.
func NewConferenceName(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s%d-%s", conferencePrefix, now.Unix(), suffix)
}

// ExtractCallRef recovers the embedded call ref from a conforming
// conference name. Conference webhooks for rooms this service did not
// create (or malformed names) report ok=false and must not touch the
// status table.
func ExtractCallRef(conferenceName string) (string, bool) {
	if !strings.HasPrefix(conferenceName, conferencePrefix) {
		return "", false
	}
	ref := strings.TrimPrefix(conferenceName, conferencePrefix)

	ts, suffix, found := strings.Cut(ref, "-")
	if !found || ts == "" || suffix == "" {
		return "", false
	}
	for _, r := range ts {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return ref, true
}
