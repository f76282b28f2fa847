package pipeline

import "context"

// Processor is implemented by types that can process Payloads as part of a
// pipeline stage.
type Processor interface {
	// Process operates on the input payload and returns a new payload
	// to be forwarded to the next pipeline stage. Processors may also opt to
	// prevent the payload from reaching the rest of the pipeline by returning
	// a nil payload value instead.
	Process(ctx context.Context, payload Payload) (Payload, error)
}

// ProcessorFunc is an adapter to allow the use of plain functions as
// Processor instances.
type ProcessorFunc func(context.Context, Payload) (Payload, error)

// Process calls f(ctx, p).
func (f ProcessorFunc) Process(ctx context.Context, p Payload) (Payload, error) {
	return f(ctx, p)
}
