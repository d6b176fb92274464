// Package plugin tracks the data plugins an agent may consult: their
// identity, enablement, credential and the DataSource that serves them.
package plugin

import (
	"context"

	"github.com/soyeahso/marketmind/internal/domain"
)

// DataSource fetches one domain record for a plugin. Implementations must
// honor ctx cancellation and must stamp every record with its update time.
type DataSource interface {
	Fetch(ctx context.Context, params map[string]string) (domain.Record, error)
	Close() error
}

// SourceFunc adapts a function to the DataSource interface.
type SourceFunc func(ctx context.Context, params map[string]string) (domain.Record, error)

func (f SourceFunc) Fetch(ctx context.Context, params map[string]string) (domain.Record, error) {
	return f(ctx, params)
}

func (f SourceFunc) Close() error { return nil }
