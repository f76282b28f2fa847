package builder

import (
	"context"

	"sitegraph/linkgraph/extractor"
	"sitegraph/pipeline"
)

// DocumentExtractor is implemented by types that can extract the local
// links of a single document.
type DocumentExtractor interface {
	Extract(path string) *extractor.Result
}

type linkExtractor struct {
	extractor  DocumentExtractor
	normalizer Normalizer
}

func newLinkExtractor(ex DocumentExtractor, normalizer Normalizer) *linkExtractor {
	return &linkExtractor{
		extractor:  ex,
		normalizer: normalizer,
	}
}

// Process implements pipeline.Processor. Extraction failures are carried
// in the payload result and never abort the pipeline.
func (le *linkExtractor) Process(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*documentPayload)

	payload.Key = le.normalizer.Normalize(payload.Path)
	payload.Result = le.extractor.Extract(payload.Path)
	return payload, nil
}
