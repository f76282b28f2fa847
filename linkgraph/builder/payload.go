package builder

import (
	"sync"

	"sitegraph/linkgraph/extractor"
	"sitegraph/pipeline"
)

var (
	_ pipeline.Payload = (*documentPayload)(nil)

	payloadPool = sync.Pool{
		New: func() interface{} { return new(documentPayload) },
	}
)

type documentPayload struct {
	// Path of the document inside the site file system.
	Path string

	// Key is the normalized node name of the document itself.
	Key string

	// Result holds the outcome of the link extraction step.
	Result *extractor.Result
}

// Clone implements pipeline.Payload. The build only runs FIFO stages, which
// never clone, so a shallow copy sharing the extraction result suffices.
func (p *documentPayload) Clone() pipeline.Payload {
	newP := payloadPool.Get().(*documentPayload)
	*newP = *p
	return newP
}

// MarkAsProcessed implements pipeline.Payload.
func (p *documentPayload) MarkAsProcessed() {
	p.Path = ""
	p.Key = ""
	p.Result = nil
	payloadPool.Put(p)
}
