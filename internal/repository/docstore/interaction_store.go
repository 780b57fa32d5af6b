package docstore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
)

type interactionStore struct {
	client *firestore.Client
}

func NewInteractionRepository(client *firestore.Client) repository.InteractionRepository {
	return &interactionStore{client: client}
}

func (s *interactionStore) ref(locationID, userID string) *firestore.DocumentRef {
	return s.client.Collection(colLocations).Doc(locationID).Collection(colInteractions).Doc(userID)
}

// Award runs as a Firestore transaction. All reads precede the writes, and
// the interaction read makes a concurrent award of the same pair conflict
// and retry, after which it observes the record and stops.
func (s *interactionStore) Award(ctx context.Context, locationID, userID string, points int64) (*repository.Award, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	locRef := s.client.Collection(colLocations).Doc(locationID)
	recRef := s.ref(locationID, userID)

	var out repository.Award
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		locSnap, err := tx.Get(locRef)
		if err != nil {
			return translate(err)
		}
		recSnap, err := tx.Get(recRef)
		if err != nil && !isNotFound(err) {
			return err
		}
		if recSnap != nil && recSnap.Exists() {
			return repository.ErrAlreadyInteracted
		}
		ownerUID, _ := locSnap.Data()["userId"].(string)

		rec := model.Interaction{
			LocationID:  locationID,
			UserID:      userID,
			PointsGiven: points,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Create(recRef, rec.ToDoc()); err != nil {
			return err
		}
		if err := tx.Update(locRef, []firestore.Update{
			{Path: "points", Value: firestore.Increment(points)},
		}); err != nil {
			return err
		}
		if ownerUID != "" {
			if err := tx.Set(s.client.Collection(colUsers).Doc(ownerUID), map[string]interface{}{
				"totalPoints": firestore.Increment(points),
				"updatedAt":   firestore.ServerTimestamp,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		out = repository.Award{Interaction: rec, OwnerUID: ownerUID}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyInteracted) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, translate(err)
	}
	return &out, nil
}

func (s *interactionStore) Exists(ctx context.Context, locationID, userID string) (bool, error) {
	if s.client == nil {
		return false, repository.ErrDBNotReady
	}
	snap, err := s.ref(locationID, userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return snap.Exists(), nil
}
