package telemetry

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Latch is a one-way switch that silences a sink after its first failure.
type Latch struct {
	disabled atomic.Bool
}

func (l *Latch) Enabled() bool {
	return !l.disabled.Load()
}

// Trip disables the latch for the rest of the process and logs the cause
// once.
func (l *Latch) Trip(name string, err error) {
	if l.disabled.CompareAndSwap(false, true) {
		log.Warn().Err(err).Str("sink", name).Msg("telemetry failed, disabling further emissions")
	}
}
