package wizard

import (
	"context"
	"sync"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/stream"
)

type fakeBackend struct {
	mu sync.Mutex

	meta      domain.Metadata
	metaErr   error
	launchID  string
	launchErr error

	fetches  []string
	launches []domain.LaunchRequest
}

func (b *fakeBackend) FetchMetadata(_ context.Context, url string) (domain.Metadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches = append(b.fetches, url)
	return b.meta, b.metaErr
}

func (b *fakeBackend) Launch(_ context.Context, req domain.LaunchRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.launches = append(b.launches, req)
	if b.launchErr != nil {
		return "", b.launchErr
	}
	return b.launchID, nil
}

type fakeSub struct {
	id      string
	handler stream.Handler
	closed  int
}

func (s *fakeSub) Close() { s.closed++ }

type fakeSubscriber struct {
	subs []*fakeSub
	err  error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, id string, h stream.Handler) (stream.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSub{id: id, handler: h}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeSubscriber) last() *fakeSub {
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

// jobQueue defers I/O jobs until flush so tests can observe pending phases.
type jobQueue struct {
	jobs []func()
}

func (q *jobQueue) Go(job func()) { q.jobs = append(q.jobs, job) }

func (q *jobQueue) flush() {
	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		job()
	}
}
