package graph

import "golang.org/x/xerrors"

var (
	// ErrNotFound is returned when a node lookup fails.
	ErrNotFound = xerrors.New("not found")

	// ErrUnknownEdgeLinks is returned when attempting to create an edge
	// with an invalid source and/or target ID.
	ErrUnknownEdgeLinks = xerrors.New("unknown source and/or target for edge")
)
