package etc

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewHistoryID returns a millisecond-timestamp identifier. IDs issued by
// the same process are strictly increasing even when the clock does not
// advance between calls.
func NewHistoryID() string {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return strconv.FormatInt(id, 10)
}

// FormatClock renders a position in seconds as m:ss for transport displays.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
