package download

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Request names one download for DownloadAll.
type Request struct {
	URL  string
	Name string
}

// DownloadAll downloads every request with bounded concurrency. A failed
// request does not stop the others; the returned error joins all failures.
// Jobs are returned in request order.
func (p *Pipeline) DownloadAll(ctx context.Context, reqs []Request) ([]*Job, error) {
	jobs := make([]*Job, len(reqs))
	errs := make([]error, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var done int32
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			job, err := p.Download(ctx, req.URL, req.Name)
			jobs[i] = job
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", req.URL, err)
				return nil // Continue with other downloads
			}
			atomic.AddInt32(&done, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return jobs, err
	}

	if int(done) == len(reqs) {
		p.log.Info().Int("count", len(reqs)).Msg("all downloads finished")
	} else {
		p.log.Warn().Int("count", len(reqs)).Int32("succeeded", done).Msg("some downloads failed")
	}
	return jobs, errors.Join(errs...)
}
