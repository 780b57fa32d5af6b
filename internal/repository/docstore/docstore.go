// Package docstore implements the repository interfaces on Cloud Firestore.
//
// Layout:
//
//	locations/{id}
//	locations/{id}/interactions/{uid}
//	users/{uid}
//	users/{uid}/notifications/{id}
package docstore

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colLocations     = "locations"
	colInteractions  = "interactions"
	colUsers         = "users"
	colNotifications = "notifications"
)

const maxLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func translate(err error) error {
	if isNotFound(err) {
		return repository.ErrNotFound
	}
	return err
}

func count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("n").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["n"].(*firestorepb.Value)
	if !ok {
		return 0, errors.New("firestore: count aggregation missing")
	}
	return v.GetIntegerValue(), nil
}

// watch runs q as a snapshot listener and decodes every snapshot.
func watch[T any](ctx context.Context, q firestore.Query, decode func([]*firestore.DocumentSnapshot) (T, error)) *live.Subscription[T] {
	return live.Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			v, err := decode(docs)
			if err != nil {
				return err
			}
			if !emit(v) {
				return nil
			}
		}
	})
}

func sortByPoints[T any](list []T, key func(T) (int64, int64, string)) {
	sort.SliceStable(list, func(i, j int) bool {
		pi, ti, idi := key(list[i])
		pj, tj, idj := key(list[j])
		if pi != pj {
			return pi > pj
		}
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})
}
