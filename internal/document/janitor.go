package document

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Janitor removes blobs that have no registry row: leftovers of uploads whose
// registration failed mid-flight. Objects younger than minAge are skipped so a
// sweep never races an upload still being registered.
type Janitor struct {
	store  BlobStore
	repo   Repo
	minAge time.Duration
	pool   *ants.Pool
}

func NewJanitor(store BlobStore, repo Repo, minAge time.Duration, workers int) (*Janitor, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("init janitor pool: %w", err)
	}
	return &Janitor{
		store:  store,
		repo:   repo,
		minAge: minAge,
		pool:   pool,
	}, nil
}

func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	objs, err := j.store.ListObjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	var (
		wg      sync.WaitGroup
		removed int32
	)

	for _, obj := range objs {
		if time.Since(obj.LastModified) < j.minAge {
			continue
		}

		registered, err := j.repo.HasKey(ctx, obj.Key)
		if err != nil {
			log.Printf("[janitor] registry check failed for %s: %v", obj.Key, err)
			continue
		}
		if registered {
			continue
		}

		obj := obj
		wg.Add(1)
		if err := j.pool.Submit(func() {
			defer wg.Done()
			if err := j.store.RemoveObject(ctx, obj.Key); err != nil {
				log.Printf("[janitor] remove %s failed: %v", obj.Key, err)
				return
			}
			atomic.AddInt32(&removed, 1)
		}); err != nil {
			wg.Done()
			log.Printf("[janitor] submit failed: %v", err)
		}
	}

	wg.Wait()
	return int(atomic.LoadInt32(&removed)), nil
}

func (j *Janitor) Release() {
	j.pool.Release()
}
