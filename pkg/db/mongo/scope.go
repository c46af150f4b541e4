package mongo

import (
	"context"
	"fmt"
	"time"

	"buscharter/pkg/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const TenantField = "tenant_id"

// Scoped copies filter and pins it to the tenant carried by ctx. Every
// repository query goes through here, so a caller cannot name another tenant.
func Scoped(ctx context.Context, filter bson.M) (bson.M, error) {
	tenantID, err := tenant.ID(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoped query: %w", err)
	}

	scoped := make(bson.M, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	scoped[TenantField] = tenantID
	return scoped, nil
}

// WithTimeout wraps the context with a timeout unless it belongs to a session.
// Inside a transaction the transaction owns the deadline, so per-operation
// timeouts are not layered on top of it.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if InTransaction(ctx) {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}
	return context.WithTimeout(ctx, timeout)
}

func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
