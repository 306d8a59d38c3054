package domain

import "time"

// Clock is injected so expiry and day boundaries can be pinned in tests.
type Clock func() time.Time
