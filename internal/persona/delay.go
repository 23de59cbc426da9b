package persona

import (
	"math/rand/v2"
	"time"
)

// TypingDelay returns a source of delays drawn uniformly from [lo, hi],
// used to make the persona look like it is typing. If hi <= lo every
// delay is lo.
func TypingDelay(lo, hi time.Duration) func() time.Duration {
	return func() time.Duration {
		if hi <= lo {
			return lo
		}
		return lo + rand.N(hi-lo+1)
	}
}
