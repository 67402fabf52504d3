package widget

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/putto11262002/roomchat/core"
)

// CharCount is the number of characters in a draft.
func CharCount(draft string) int {
	return utf8.RuneCountInString(draft)
}

// Mode is the composer mode. Exactly one mode is selected at a time.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeShare Mode = "share"
)

// Clock shows the wall-clock time as HH:MM and updates on every minute boundary.
type Clock struct {
	now  func() time.Time
	show func(hhmm string)
}

func NewClock(show func(hhmm string)) *Clock {
	return &Clock{now: time.Now, show: show}
}

// Run shows the time immediately and then at the start of every minute
// until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	for {
		now := c.now()
		c.show(now.Format(core.TimeLayout))

		next := now.Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
