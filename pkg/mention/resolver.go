package mention

import "context"

// Resolver retrieves ranked candidate entities for a partial query. The
// concrete search backend is pluggable; pkg/directory provides the default
// in-memory implementation.
//
// Contract:
//   - results come back best-match-first and the caller must not re-sort;
//   - an empty query returns a reasonable default set (recent or
//     most-relevant items), not an empty list;
//   - category narrows results when not CategoryAny;
//   - ctx carries the caller's deadline, resolvers should honor it.
type Resolver interface {
	Resolve(ctx context.Context, query string, category Category) ([]Entity, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, query string, category Category) ([]Entity, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, query string, category Category) ([]Entity, error) {
	return f(ctx, query, category)
}
