package bulk

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"todoctl/internal/logging"
	"todoctl/internal/service"
)

// DefaultDeleteConcurrency bounds the number of delete requests in flight.
const DefaultDeleteConcurrency = 8

// DeleteResult aggregates the outcomes of a bulk delete.
type DeleteResult struct {
	Succeeded int
	Failed    int

	// Errors holds the failure of each ID that could not be deleted.
	Errors map[int64]error
}

// FailedIDs returns the IDs that could not be deleted, ascending.
func (r DeleteResult) FailedIDs() []int64 {
	ids := make([]int64, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DeleteAll deletes every ID concurrently, at most limit at a time
// (DefaultDeleteConcurrency when limit <= 0), and waits for all of them.
// A failed delete never cancels the others; failures are counted, not
// returned.
func DeleteAll(ctx context.Context, deleter service.Deleter, ids []int64, limit int) DeleteResult {
	if limit <= 0 {
		limit = DefaultDeleteConcurrency
	}
	log := logging.FromContext(ctx)

	var (
		mu     sync.Mutex
		result = DeleteResult{Errors: make(map[int64]error)}
	)

	// A plain Group, not WithContext: one failure must not cancel siblings.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			err := deleter.Delete(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[id] = err
				log.Debug("delete failed", "task_id", id, "error", err)
				return nil
			}
			result.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	log.Info("bulk delete finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result
}
