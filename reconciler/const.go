package reconciler

import "time"

const (
	ReconcileInterval  = 10 * time.Minute
	ReconcileBatchSize = 100
)
