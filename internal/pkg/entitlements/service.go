package entitlements

import (
	"context"
	"time"
)

// Service implements the entitlement operations over an external store.
// All reads go to the store on every call; nothing is cached locally.
type Service struct {
	store  Store
	slots  SlotReserver
	limits Limits
	now    func() time.Time
}

func NewService(store Store, slots SlotReserver, limits Limits) *Service {
	return &Service{
		store:  store,
		slots:  slots,
		limits: limits,
		now:    time.Now,
	}
}

// Limits returns the configured free-tier bounds.
func (s *Service) Limits() Limits {
	return s.limits
}

// Record returns the current entitlement record for a user.
func (s *Service) Record(ctx context.Context, userID string) (Record, error) {
	return s.store.Get(ctx, userID)
}

// InitializeTrial starts the free trial for a first-seen user. Idempotent:
// once TrialStartDate is set it is never overwritten.
func (s *Service) InitializeTrial(ctx context.Context, userID string) error {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if rec.TrialStartDate != nil {
		return nil
	}

	status := StatusTrialing
	start := s.now()
	count := 0
	return s.store.Patch(ctx, userID, Patch{
		SubscriptionStatus: &status,
		TrialStartDate:     &start,
		ListingCount:       &count,
	})
}

// CanCreateListing is the pure gate check: no side effects, no reservation.
func (s *Service) CanCreateListing(ctx context.Context, userID string) (Decision, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decide(rec, 0, s.now(), s.limits), nil
}

// ReserveListingSlot performs the gate check while holding an in-flight
// reservation, closing the check-then-increment race between concurrent
// requests from the same user. When the decision allows, the caller must
// invoke the returned release func once the request finishes (success or
// failure); on denial the reservation is already released.
func (s *Service) ReserveListingSlot(ctx context.Context, userID string) (Decision, func(), error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, nil, err
	}

	held, err := s.slots.Reserve(ctx, userID)
	if err != nil {
		return Decision{}, nil, err
	}

	// held includes our own reservation; siblings are held-1.
	d := Decide(rec, held-1, s.now(), s.limits)
	if !d.Allowed {
		_ = s.slots.Release(ctx, userID)
		return d, nil, nil
	}

	release := func() {
		_ = s.slots.Release(context.Background(), userID)
	}
	return d, release, nil
}

// IncrementListingCount records one successful generation. Must only be
// called after the pipeline has fully succeeded.
func (s *Service) IncrementListingCount(ctx context.Context, userID string) error {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	next := rec.ListingCount + 1
	return s.store.Patch(ctx, userID, Patch{ListingCount: &next})
}

// ReconcileWithBilling overwrites status and period end from an
// authoritative billing provider read. Status is never invented locally
// beyond the initial none -> trialing transition.
func (s *Service) ReconcileWithBilling(ctx context.Context, userID string, status Status, periodEnd *time.Time) error {
	p := Patch{SubscriptionStatus: &status}
	if periodEnd != nil {
		p.SubscriptionEndDate = periodEnd
	}
	return s.store.Patch(ctx, userID, p)
}

// LinkStripeCustomer persists the billing customer id the first time a
// checkout is started.
func (s *Service) LinkStripeCustomer(ctx context.Context, userID, customerID string) error {
	return s.store.Patch(ctx, userID, Patch{StripeCustomerID: &customerID})
}

// ApplySubscription persists the full subscription linkage after a
// completed checkout.
func (s *Service) ApplySubscription(ctx context.Context, userID, subscriptionID, customerID string, status Status, periodEnd *time.Time) error {
	p := Patch{
		SubscriptionStatus:   &status,
		StripeSubscriptionID: &subscriptionID,
	}
	if customerID != "" {
		p.StripeCustomerID = &customerID
	}
	if periodEnd != nil {
		p.SubscriptionEndDate = periodEnd
	}
	return s.store.Patch(ctx, userID, p)
}

// WithClock replaces the time source; tests use it to pin the trial window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
