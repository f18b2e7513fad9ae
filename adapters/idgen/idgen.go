// Package idgen provides record id generation implementations.
package idgen

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/vaultkit/ports"
)

// Generator mints ids of the form {plugin}_{table}_{unixMillis}_{suffix},
// where the suffix is base36 drawn from UUID entropy. Collisions are treated
// as negligible, not handled.
type Generator struct {
	clock ports.Clock
}

// New creates a generator using the given clock for the timestamp segment.
func New(clock ports.Clock) *Generator {
	return &Generator{clock: clock}
}

// NewID returns a new record id for the given table.
func (g *Generator) NewID(plugin, table string) string {
	millis := g.clock.Now().UnixMilli()
	return fmt.Sprintf("%s_%s_%d_%s", plugin, table, millis, suffix())
}

func suffix() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])
	s := strconv.FormatUint(n, 36)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Generator)(nil)

// Sequential generates deterministic ids (for testing).
type Sequential struct {
	millis  int64
	counter uint64
}

// NewSequential creates a sequential id generator whose timestamp segment is
// fixed at the given unix-millisecond value.
func NewSequential(millis int64) *Sequential {
	return &Sequential{millis: millis}
}

// NewID returns the next sequential id.
func (s *Sequential) NewID(plugin, table string) string {
	n := atomic.AddUint64(&s.counter, 1)
	return fmt.Sprintf("%s_%s_%d_%06d", plugin, table, s.millis, n)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
