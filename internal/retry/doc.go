// Package retry retries connection attempts with exponential backoff.
//
// Retries are used only while establishing a connection pool. Once a load
// run has begun its transaction nothing is retried: a failed statement
// aborts the run and rolls everything back.
//
//	executor := retry.NewExecutor(retry.NewConnectClassifier(), retry.NewExponentialBackoff(3))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return connect(ctx)
//	})
package retry
