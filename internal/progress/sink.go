package progress

import "context"

// Sink consumes batches of import events. Implementations must honor ctx
// deadlines; a batch slice is shared between sinks and must not be mutated.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Hub satisfies it so the import
// pipeline stays agnostic about buffering.
type Emitter interface {
	Emit(evt Event)
}
