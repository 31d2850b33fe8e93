package events

import (
	"context"
	"log"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not
// blocked. producer and event may be nil; then nothing is started. The
// goroutine uses context.Background() so caller cancellation does not abort an
// in-flight emit.
func EmitAsync(producer Producer, event *JobEvent) {
	if producer == nil || event == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := producer.Emit(emitCtx, event); err != nil {
			log.Printf("provision: async emit failed: %v", err)
		}
	}()
}
