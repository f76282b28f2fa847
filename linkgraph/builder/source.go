package builder

import (
	"context"

	"sitegraph/pipeline"
)

// documentSource feeds the discovered documents into the pipeline in walk
// order.
type documentSource struct {
	paths []string
	next  int
	cur   string
}

func (s *documentSource) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.next >= len(s.paths) {
		return false
	}
	s.cur = s.paths[s.next]
	s.next++
	return true
}

func (s *documentSource) Payload() pipeline.Payload {
	p := payloadPool.Get().(*documentPayload)
	p.Path = s.cur
	return p
}

func (s *documentSource) Error() error { return nil }
