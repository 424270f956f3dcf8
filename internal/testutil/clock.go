package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MintTime is where every test clock starts.
var MintTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an nft.Clock that only moves when a test advances it.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a StubClock set to MintTime.
func FixedClock() *StubClock {
	return &StubClock{now: MintTime}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, typically between two mints whose
// journal order matters.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator names scratch directories and uploads "id-1", "id-2", ...
type StubIDGenerator struct {
	n atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "id-" + strconv.FormatInt(g.n.Add(1), 10)
}
