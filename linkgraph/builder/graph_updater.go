package builder

import (
	"context"

	"sitegraph/linkgraph/extractor"
	"sitegraph/linkgraph/graph"
	"sitegraph/pipeline"
)

// graphUpdater is the pipeline sink. It is the only writer of the graph
// for the duration of a build.
type graphUpdater struct {
	updater graph.Graph

	documents int
	skipped   []*extractor.Result
}

func newGraphUpdater(updater graph.Graph) *graphUpdater {
	return &graphUpdater{
		updater: updater,
	}
}

// Consume implements pipeline.Sink.
func (gu *graphUpdater) Consume(_ context.Context, p pipeline.Payload) error {
	payload := p.(*documentPayload)
	gu.documents++

	src := &graph.Node{Name: payload.Key}
	if err := gu.updater.UpsertNode(src); err != nil {
		return err
	}

	if payload.Result.Skipped() {
		gu.skipped = append(gu.skipped, payload.Result)
		return nil
	}

	// Every link becomes an edge, even when it repeats an earlier one or
	// points back at the document itself.
	for _, link := range payload.Result.Links {
		dst := &graph.Node{Name: link}
		if err := gu.updater.UpsertNode(dst); err != nil {
			return err
		}
		if err := gu.updater.UpsertEdge(&graph.Edge{Source: src.ID, Target: dst.ID}); err != nil {
			return err
		}
	}
	return nil
}
