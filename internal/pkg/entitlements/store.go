package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/listingcraft/listingcraft/internal/pkg/identity"
)

// ErrStoreUnavailable signals that the entitlement store could not be
// reached. Gate checks propagate it instead of substituting an empty
// record, so an outage denies access rather than granting it.
var ErrStoreUnavailable = errors.New("entitlements: store unavailable")

// Patch is a partial record update with merge semantics; nil fields are
// left untouched in the store.
type Patch struct {
	SubscriptionStatus   *Status
	ListingCount         *int
	TrialStartDate       *time.Time
	SubscriptionEndDate  *time.Time
	StripeCustomerID     *string
	StripeSubscriptionID *string
}

// Store is the external per-user entitlement record storage.
type Store interface {
	Get(ctx context.Context, userID string) (Record, error)
	Patch(ctx context.Context, userID string, p Patch) error
}

// identityStore keeps the record in the identity provider's public metadata,
// the same place the reference deployment uses.
type identityStore struct {
	client *identity.Client
}

func NewIdentityStore(client *identity.Client) Store {
	return &identityStore{client: client}
}

func (s *identityStore) Get(ctx context.Context, userID string) (Record, error) {
	user, err := s.client.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := Record{SubscriptionStatus: StatusNone}
	if len(user.PublicMetadata) > 0 {
		if err := json.Unmarshal(user.PublicMetadata, &rec); err != nil {
			return Record{}, fmt.Errorf("entitlements: malformed metadata for user %s: %w", userID, err)
		}
		if rec.SubscriptionStatus == "" {
			rec.SubscriptionStatus = StatusNone
		}
	}
	return rec, nil
}

func (s *identityStore) Patch(ctx context.Context, userID string, p Patch) error {
	fields := map[string]interface{}{}
	if p.SubscriptionStatus != nil {
		fields["subscriptionStatus"] = *p.SubscriptionStatus
	}
	if p.ListingCount != nil {
		fields["listingCount"] = *p.ListingCount
	}
	if p.TrialStartDate != nil {
		fields["trialStartDate"] = p.TrialStartDate.UTC().Format(time.RFC3339)
	}
	if p.SubscriptionEndDate != nil {
		fields["subscriptionEndDate"] = p.SubscriptionEndDate.UTC().Format(time.RFC3339)
	}
	if p.StripeCustomerID != nil {
		fields["stripeCustomerId"] = *p.StripeCustomerID
	}
	if p.StripeSubscriptionID != nil {
		fields["stripeSubscriptionId"] = *p.StripeSubscriptionID
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.client.PatchUserMetadata(ctx, userID, fields); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
