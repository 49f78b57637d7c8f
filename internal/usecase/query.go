package usecase

import (
	"context"
	"fmt"

	"mcpchat/internal/domain"
)

// QueryService answers standalone queries. Each query gets its own client:
// connect, run, clean up.
type QueryService struct {
	deps      ClientDeps
	newClient func(ClientDeps) queryClient
}

// queryClient is the part of Client that ProcessQuery drives.
type queryClient interface {
	Connect(ctx context.Context, ep domain.Endpoint) error
	Query(ctx context.Context, query string) (string, error)
	Cleanup(ctx context.Context) error
}

// NewQueryService creates a QueryService building clients from deps.
func NewQueryService(deps ClientDeps) *QueryService {
	return &QueryService{
		deps:      deps,
		newClient: func(d ClientDeps) queryClient { return NewClient(d) },
	}
}

// ProcessQuery connects to ep, answers query and disconnects. It never
// returns an error: failures while connecting, answering or cleaning up are
// rendered as
// "Error processing query via <transport>: <message>".
func (s *QueryService) ProcessQuery(ctx context.Context, query string, ep domain.Endpoint) (answer string) {
	label := ep.Transport.Label()
	client := s.newClient(s.deps)

	ok := false
	defer func() {
		if rec := recover(); rec != nil {
			s.deps.Logger.Error("query panicked", "panic", rec, "transport", label)
			answer = QueryErrorMessage(ep.Transport, fmt.Errorf("internal error: %v", rec))
			ok = false
		}
		if err := client.Cleanup(context.WithoutCancel(ctx)); err != nil {
			s.deps.Logger.Warn("cleanup failed", "endpoint", ep.String(), "error", err)
			// An earlier failure keeps its message.
			if ok {
				answer = QueryErrorMessage(ep.Transport, err)
				ok = false
			}
		}
		s.deps.Metrics.ObserveQuery(label, ok)
	}()

	if err := client.Connect(ctx, ep); err != nil {
		return QueryErrorMessage(ep.Transport, err)
	}
	answer, err := client.Query(ctx, query)
	if err != nil {
		return QueryErrorMessage(ep.Transport, err)
	}
	ok = true
	return answer
}

// QueryErrorMessage renders a failed query for the caller.
func QueryErrorMessage(kind domain.TransportKind, err error) string {
	return fmt.Sprintf("Error processing query via %s: %v", kind.Label(), err)
}
