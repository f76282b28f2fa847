package service

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Service is a long-running part of the sitegraph server process, such as
// the HTTP file server or the rebuild watcher.
type Service interface {
	// Name returns the service name.
	Name() string

	// Run executes the service and blocks until the context gets cancelled
	// or an error occurs.
	Run(ctx context.Context) error
}

// Group runs a set of services side by side.
type Group []Service

// Run starts every service in the group and blocks until all of them have
// returned. A service failing cancels the others; the errors of all failed
// services are accumulated into the returned error.
func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var (
		wg    sync.WaitGroup
		errCh = make(chan error, len(g))
	)
	wg.Add(len(g))
	for _, svc := range g {
		go func(svc Service) {
			defer wg.Done()
			if err := svc.Run(runCtx); err != nil {
				errCh <- xerrors.Errorf("%s: %w", svc.Name(), err)
				cancelFn()
			}
		}(svc)
	}

	wg.Wait()
	close(errCh)

	var err error
	for svcErr := range errCh {
		err = multierror.Append(err, svcErr)
	}
	return err
}
