package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ DocumentStore = (*FirestoreStore)(nil)

// FirestoreStore reads challenges and check-ins from Firestore:
//
//	users/{userID}/challenges/{challengeID}
//	users/{userID}/challenges/{challengeID}/checkins/{checkInID}
type FirestoreStore struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewFirestoreStore creates a DocumentStore backed by client. Malformed
// documents are logged and skipped; logger may be nil.
func NewFirestoreStore(client *firestore.Client, logger *slog.Logger) *FirestoreStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FirestoreStore{client: client, logger: logger}
}

func (s *FirestoreStore) challenges(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("challenges")
}

// ListChallenges returns every challenge the user owns, ordered by start date.
func (s *FirestoreStore) ListChallenges(ctx context.Context, userID string) ([]ChallengeRecord, error) {
	iter := s.challenges(userID).OrderBy("start_date", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []ChallengeRecord
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(ctx, err)
		}

		var record ChallengeRecord
		if err := doc.DataTo(&record); err != nil {
			s.logger.Warn("skipping malformed challenge", "challenge_id", doc.Ref.ID, "error", err)
			continue
		}
		record.ID = doc.Ref.ID
		if record.OwnerID == "" {
			record.OwnerID = userID
		}
		out = append(out, record)
	}
	return out, nil
}

// ListCheckIns returns a challenge's check-ins dated at or after since.
func (s *FirestoreStore) ListCheckIns(ctx context.Context, userID, challengeID string, since time.Time) ([]CheckInRecord, error) {
	iter := s.challenges(userID).Doc(challengeID).Collection("checkins").
		Where("date", ">=", since).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []CheckInRecord
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(ctx, err)
		}

		var record CheckInRecord
		if err := doc.DataTo(&record); err != nil {
			s.logger.Warn("skipping malformed check-in", "challenge_id", challengeID, "check_in_id", doc.Ref.ID, "error", err)
			continue
		}
		record.ChallengeID = challengeID
		if record.Count == 0 {
			record.Count = 1
		}
		out = append(out, record)
	}
	return out, nil
}

// classify maps Firestore failures onto engine errors. NotFound only arises
// when a parent document is deleted mid-query and reads as an empty result.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		return nil
	default:
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
}
