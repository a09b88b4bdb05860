package store

import (
	"context"
	"fmt"
)

// NewCustomHealthCheckFunc returns a go-sundheit check function that
// proves the store is reachable by running a single read-only lookup,
// grounded in storage.NewCustomHealthCheckFunc.
func NewCustomHealthCheckFunc(s UserStore) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		if _, err := s.ExistsByEmail(ctx, "healthcheck-probe@authd.invalid"); err != nil {
			return nil, fmt.Errorf("exists by email probe: %v", err)
		}
		return nil, nil
	}
}
