package mockapi

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// newID returns a ULID for now. ULIDs sort by creation time, which keeps
// the recent ordering stable for posts created in the same second.
func newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
