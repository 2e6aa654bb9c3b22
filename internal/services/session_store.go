// Package services – SessionStore
//
// This file implements the SessionStore, the single owner and only writer of
// the TableSession aggregate. Every action performs a read-modify-write
// against the latest state under the store lock (never against a value
// captured before an asynchronous gap), so rapid successive actions cannot
// lose updates and repeated SubmitOrder calls cannot mint duplicate round
// numbers.
//
// Persistence is write-through: each mutation re-serializes the full session
// via the repository. A storage failure is logged and the in-memory copy of
// the aggregate remains authoritative for this process; an expired record is
// indistinguishable from an absent one.
package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tavolo/go-table-backend/internal/closeflow"
	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/repo"
	"github.com/tavolo/go-table-backend/internal/retry"
	"github.com/tavolo/go-table-backend/internal/split"
)

const (
	// MinQuantity / MaxQuantity bound a cart line's quantity; AddToCart
	// rejects anything outside [1,99].
	MinQuantity = 1
	MaxQuantity = 99

	// maxNoteRunes bounds the free-text note on a cart item; longer notes
	// are truncated, not rejected.
	maxNoteRunes = 140

	// DefaultSessionTTL is the logical lifetime of a table session.
	DefaultSessionTTL = 8 * time.Hour
)

// SessionRepo defines the persistence contract required by the SessionStore.
// Implementations provide get/set/remove semantics over the serialized
// session envelope and the device → diner bindings.
type SessionRepo interface {
	// GetSession loads and deserializes the session for a table. Expired
	// records behave as absent (repo.ErrNotFound).
	GetSession(ctx context.Context, db *gorm.DB, tableID string, now time.Time) (*domain.TableSession, *domain.TableSessionRecord, error)

	// PutSession upserts the full serialized session.
	PutSession(ctx context.Context, db *gorm.DB, session *domain.TableSession, ttl time.Duration, now time.Time) error

	// DeleteSession removes the session envelope and all bindings.
	DeleteSession(ctx context.Context, db *gorm.DB, tableID string) error

	// GetBinding resolves the diner identity bound to a device at a table.
	GetBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) (*domain.DeviceBinding, error)

	// PutBinding records the device → diner binding.
	PutBinding(ctx context.Context, db *gorm.DB, tableID, deviceID, dinerID string, now time.Time) error

	// DeleteBinding drops a device's binding without touching the session.
	DeleteBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) error
}

// RoundNotifier is an optional downstream collaborator told about each
// submitted round (a kitchen display, a receipt printer bridge). Calls go
// through the retry utility because the collaborator is simulated-network:
// transient failures are retried, and a final failure never fails the
// submission itself.
type RoundNotifier interface {
	NotifyRound(ctx context.Context, tableID string, round *domain.OrderRecord) error
}

// AuthIdentity carries the optional authenticated-user identity of a caller.
type AuthIdentity struct {
	UserID string
	Email  string
	Name   string
}

// AddToCartInput is the payload for AddToCart. Name, price, and image are
// snapshots of the product at add time.
type AddToCartInput struct {
	TableID   string
	DeviceID  string
	ProductID string
	Name      string
	Price     float64
	ImageURL  string
	// Quantity defaults to 1 when zero; otherwise must be in [1,99].
	Quantity int
	Note     string
}

// FlowStatus is a snapshot of the close-table negotiation for a table.
type FlowStatus struct {
	State  closeflow.State  `json:"state"`
	Waiter closeflow.Waiter `json:"waiter"`
}

// SessionStore owns the TableSession aggregates, one per table. All
// mutations flow through its action methods; everything else reads through
// selectors that return copies.
type SessionStore struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the session repository used by this store.
	Repo SessionRepo

	// TTL is the logical session lifetime (default 8h).
	TTL time.Duration
	// FlowConfig carries the close-table negotiation timings.
	FlowConfig closeflow.Config
	// Now is the clock, swappable for tests.
	Now func() time.Time
	// Notifier, when set, is told about submitted rounds (with retries).
	Notifier RoundNotifier
	// RetryOpts shapes the Notifier retry policy.
	RetryOpts retry.Options

	mu sync.Mutex
	// cache holds the in-process authoritative copy per table; it keeps the
	// store usable when the storage substrate is down.
	cache map[string]*domain.TableSession
	// flows holds at most one in-flight close negotiation per table, bound
	// to the session it negotiates for. A flow whose session is gone is
	// stale and torn down on sight.
	flows map[string]*tableFlow
	// colorMemo memoizes tableID+dinerID → color for O(1) repeat lookups.
	colorMemo map[string]string
}

// tableFlow pairs a close negotiation with the session that started it, so
// a controller left behind by an expired session cannot act on the table's
// next party.
type tableFlow struct {
	sessionID string
	ctl       *closeflow.Controller
}

// NewSessionStore constructs a SessionStore with production defaults.
func NewSessionStore(db *gorm.DB, r SessionRepo) *SessionStore {
	return &SessionStore{
		DB:         db,
		Repo:       r,
		TTL:        DefaultSessionTTL,
		FlowConfig: closeflow.DefaultConfig(),
		Now:        time.Now,
		RetryOpts:  retry.DefaultOptions,
		cache:      make(map[string]*domain.TableSession),
		flows:      make(map[string]*tableFlow),
		colorMemo:  make(map[string]string),
	}
}

//
// Actions
//

// CreateOrJoin rehydrates the non-expired session for tableNumber or creates
// a fresh one, then adds the caller as a diner. The call is idempotent:
// repeating it with the same identity (authenticated user id, or guest
// name+device) rebinds the device to the existing diner instead of adding a
// duplicate.
func (s *SessionStore) CreateOrJoin(ctx context.Context, tableNumber, dinerName, deviceID string, auth *AuthIdentity) (*domain.TableSession, error) {
	if !TableNumberValidator(tableNumber) {
		return nil, ErrInvalidTableNumber
	}
	dinerName = normalizeDinerName(dinerName)
	if dinerName == "" && auth != nil {
		dinerName = normalizeDinerName(auth.Name)
	}
	if !validDinerName(dinerName) {
		return nil, ErrInvalidDinerName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	session, err := s.loadLocked(ctx, tableNumber)
	if err != nil {
		// No live session: start one with an empty cart and round counter 0.
		// Any close negotiation still parked here belongs to the previous
		// party and must not outlive it.
		s.dropFlowLocked(tableNumber)
		session = &domain.TableSession{
			ID:          uuid.NewString(),
			TableNumber: tableNumber,
			Status:      domain.SessionActive,
			CreatedAt:   now.UTC(),
		}
	}

	diner := s.matchDiner(session, dinerName, deviceID, auth)
	if diner == nil {
		d := domain.Diner{
			ID:       uuid.NewString(),
			Name:     dinerName,
			Color:    colorForJoinIndex(len(session.Diners)),
			JoinedAt: now.UTC(),
			DeviceID: deviceID,
		}
		if auth != nil {
			d.AuthUserID = auth.UserID
			d.AuthEmail = auth.Email
		}
		session.Diners = append(session.Diners, d)
		diner = &session.Diners[len(session.Diners)-1]
	}

	s.persistLocked(ctx, session)
	if err := s.Repo.PutBinding(ctx, s.DB, tableNumber, deviceID, diner.ID, now); err != nil {
		log.Error().Err(err).Str("table", tableNumber).Msg("persist device binding failed")
	}
	return s.viewLocked(session, diner.ID), nil
}

// matchDiner finds an existing diner for the caller's identity:
// authenticated user id first, then guest name+device.
func (s *SessionStore) matchDiner(session *domain.TableSession, name, deviceID string, auth *AuthIdentity) *domain.Diner {
	for i := range session.Diners {
		d := &session.Diners[i]
		if auth != nil && auth.UserID != "" && d.AuthUserID == auth.UserID {
			return d
		}
		if auth == nil && d.AuthUserID == "" && d.Name == name && d.DeviceID == deviceID {
			return d
		}
	}
	return nil
}

// AddToCart validates the item and appends it to the shared cart,
// attributed to the calling device's diner. The updated session is persisted
// synchronously.
func (s *SessionStore) AddToCart(ctx context.Context, in AddToCartInput) error {
	if in.Price <= 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return ErrInvalidItem
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < MinQuantity || qty > MaxQuantity {
		return ErrInvalidItem
	}
	if in.Name == "" {
		return ErrInvalidItem
	}
	note := in.Note
	if utf8.RuneCountInString(note) > maxNoteRunes {
		note = string([]rune(note)[:maxNoteRunes])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, in.TableID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionClosed {
		return ErrSessionClosed
	}

	binding, err := s.Repo.GetBinding(ctx, s.DB, in.TableID, in.DeviceID)
	if err != nil {
		return ErrNotJoined
	}
	diner := session.DinerByID(binding.DinerID)
	if diner == nil {
		return ErrNotJoined
	}

	session.Cart = append(session.Cart, domain.CartItem{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		Name:      in.Name,
		Price:     in.Price,
		ImageURL:  in.ImageURL,
		Quantity:  qty,
		DinerID:   diner.ID,
		DinerName: diner.Name,
		Note:      note,
		AddedAt:   s.Now().UTC(),
	})
	s.persistLocked(ctx, session)
	return nil
}

// RemoveFromCart deletes a cart line. An absent item id is a no-op, not an
// error, to tolerate duplicate dispatches from the presentation layer.
func (s *SessionStore) RemoveFromCart(ctx context.Context, tableID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionClosed {
		return ErrSessionClosed
	}

	for i := range session.Cart {
		if session.Cart[i].ID == itemID {
			session.Cart = append(session.Cart[:i], session.Cart[i+1:]...)
			s.persistLocked(ctx, session)
			return nil
		}
	}
	return nil
}

// UpdateItemQuantity sets a cart line's quantity, clamped to [1,99]. An
// absent item id is a no-op.
func (s *SessionStore) UpdateItemQuantity(ctx context.Context, tableID, itemID string, qty int) error {
	if qty < MinQuantity {
		qty = MinQuantity
	}
	if qty > MaxQuantity {
		qty = MaxQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionClosed {
		return ErrSessionClosed
	}

	for i := range session.Cart {
		if session.Cart[i].ID == itemID {
			session.Cart[i].Quantity = qty
			s.persistLocked(ctx, session)
			return nil
		}
	}
	return nil
}

// SubmitOrder atomically snapshots the shared cart into a new round, clears
// the cart, appends the record to history, and persists. Round numbers are
// derived from the freshly loaded state under the store lock, so rapid
// repeated calls produce the gapless sequence 1,2,3,…
func (s *SessionStore) SubmitOrder(ctx context.Context, tableID, deviceID string) (*domain.OrderRecord, error) {
	s.mu.Lock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if session.Status == domain.SessionClosed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if len(session.Cart) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}

	submittedBy := ""
	if b, err := s.Repo.GetBinding(ctx, s.DB, tableID, deviceID); err == nil {
		submittedBy = b.DinerID
	}

	items := make([]domain.CartItem, len(session.Cart))
	copy(items, session.Cart)
	var subtotal float64
	for _, it := range items {
		subtotal += it.Subtotal()
	}

	record := domain.OrderRecord{
		ID:          uuid.NewString(),
		Round:       session.CurrentRound() + 1,
		Items:       items,
		Subtotal:    subtotal,
		Status:      domain.OrderSubmitted,
		SubmittedBy: submittedBy,
		SubmittedAt: s.Now().UTC(),
	}
	session.Cart = nil
	session.Orders = append(session.Orders, record)
	s.persistLocked(ctx, session)
	s.mu.Unlock()

	roundsSubmitted.Inc()
	s.notifyRound(ctx, tableID, &record)
	return &record, nil
}

// notifyRound tells the optional downstream collaborator about a round,
// retrying transient failures. A final failure is logged, never surfaced:
// the round is already committed.
func (s *SessionStore) notifyRound(ctx context.Context, tableID string, record *domain.OrderRecord) {
	if s.Notifier == nil {
		return
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return s.Notifier.NotifyRound(ctx, tableID, record)
	}, s.RetryOpts)
	if err != nil {
		log.Warn().Err(err).Str("table", tableID).Int("round", record.Round).
			Msg("round notification failed after retries")
	}
}

// AdvanceOrder progresses a round's status along the service lifecycle
// (submitted → confirmed → preparing → ready → delivered), stamping the
// matching timestamp. Illegal transitions are rejected; terminal states are
// owned by the close flow and unreachable here.
func (s *SessionStore) AdvanceOrder(ctx context.Context, tableID, orderID string, next domain.OrderStatus) error {
	if next == domain.OrderPaid || next == domain.OrderCancelled {
		return ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	for i := range session.Orders {
		o := &session.Orders[i]
		if o.ID != orderID {
			continue
		}
		if !o.Status.CanTransition(next) {
			return ErrInvalidTransition
		}
		now := s.Now().UTC()
		o.Status = next
		switch next {
		case domain.OrderConfirmed:
			o.ConfirmedAt = &now
		case domain.OrderReady:
			o.ReadyAt = &now
		case domain.OrderDelivered:
			o.DeliveredAt = &now
		}
		s.persistLocked(ctx, session)
		return nil
	}
	return repo.ErrNotFound
}

// CloseTable starts the close-table negotiation after checking the
// preconditions: the shared cart must be empty and at least one
// non-cancelled round must exist. The call blocks through the request
// submission hold and returns the flow status once the waiter timer is
// armed. A second call while a flow is in flight fails with
// closeflow.ErrAlreadyClosing.
func (s *SessionStore) CloseTable(ctx context.Context, tableID string) (FlowStatus, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		s.mu.Unlock()
		return FlowStatus{}, err
	}
	if session.Status == domain.SessionClosed {
		s.mu.Unlock()
		return FlowStatus{}, ErrSessionClosed
	}
	if len(session.Cart) > 0 {
		s.mu.Unlock()
		return FlowStatus{}, ErrPendingCart
	}
	billable := false
	for _, o := range session.Orders {
		if o.Status != domain.OrderCancelled {
			billable = true
			break
		}
	}
	if !billable {
		s.mu.Unlock()
		return FlowStatus{}, ErrNothingToClose
	}

	tf, ok := s.flows[tableID]
	if ok && tf.sessionID != session.ID {
		// Leftover from a previous session at this table.
		tf.ctl.Shutdown()
		delete(s.flows, tableID)
		ok = false
	}
	if !ok {
		tf = &tableFlow{sessionID: session.ID, ctl: closeflow.New(s.FlowConfig)}
		s.flows[tableID] = tf
	}
	flow := tf.ctl
	s.mu.Unlock()

	// Start blocks for the request hold; the store lock must not be held
	// while the negotiation runs.
	if err := flow.Start(ctx); err != nil {
		return FlowStatus{State: flow.State()}, err
	}
	return FlowStatus{State: flow.State(), Waiter: flow.Waiter()}, nil
}

// ConfirmPayment completes the negotiation: the flow must belong to the
// live session and have reached bill_ready. On success every non-cancelled
// round is stamped delivered and paid, the session is closed and persisted,
// and the flow is torn down.
func (s *SessionStore) ConfirmPayment(ctx context.Context, tableID string) error {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	tf := s.flows[tableID]
	if tf == nil || tf.sessionID != session.ID {
		s.mu.Unlock()
		return closeflow.ErrNotBillReady
	}
	flow := tf.ctl
	s.mu.Unlock()
	if err := flow.ConfirmPayment(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err = s.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	now := s.Now().UTC()
	for i := range session.Orders {
		o := &session.Orders[i]
		if o.Status == domain.OrderCancelled || o.Status == domain.OrderPaid {
			continue
		}
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
		o.Status = domain.OrderPaid
		o.PaidAt = &now
	}
	session.Status = domain.SessionClosed
	s.persistLocked(ctx, session)

	flow.Shutdown()
	delete(s.flows, tableID)
	sessionsClosed.Inc()
	return nil
}

// LeaveTable clears the calling device's identity binding. The session and
// its other diners remain.
func (s *SessionStore) LeaveTable(ctx context.Context, tableID, deviceID string) error {
	return s.Repo.DeleteBinding(ctx, s.DB, tableID, deviceID)
}

// Shutdown tears down every in-flight close negotiation (process exit).
func (s *SessionStore) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tf := range s.flows {
		tf.ctl.Shutdown()
		delete(s.flows, id)
	}
}

//
// Selectors
//

// Session returns a copy of the table's session with IsCurrentUser set for
// the calling device's diner.
func (s *SessionStore) Session(ctx context.Context, tableID, deviceID string) (*domain.TableSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return nil, err
	}
	current := ""
	if b, err := s.Repo.GetBinding(ctx, s.DB, tableID, deviceID); err == nil {
		current = b.DinerID
	}
	return s.viewLocked(session, current), nil
}

// OrderHistory returns a copy of the table's submitted rounds.
func (s *SessionStore) OrderHistory(ctx context.Context, tableID string) ([]domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderRecord, len(session.Orders))
	copy(out, session.Orders)
	return out, nil
}

// TotalConsumed returns the sum of non-cancelled round subtotals.
func (s *SessionStore) TotalConsumed(ctx context.Context, tableID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return 0, err
	}
	return session.TotalConsumed(), nil
}

// CurrentRound returns the latest round number, 0 when none.
func (s *SessionStore) CurrentRound(ctx context.Context, tableID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return 0, err
	}
	return session.CurrentRound(), nil
}

// DinerColor returns the diner's stable display color. Lookups are memoized;
// the color itself was assigned at join time by join order.
func (s *SessionStore) DinerColor(ctx context.Context, tableID, dinerID string) (string, error) {
	key := tableID + "/" + dinerID

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.colorMemo[key]; ok {
		return c, nil
	}

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return "", err
	}
	diner := session.DinerByID(dinerID)
	if diner == nil {
		return "", repo.ErrNotFound
	}
	s.colorMemo[key] = diner.Color
	return diner.Color, nil
}

// Shares computes the payment shares for the table under the given split
// method. When the session is closed the shares are marked paid.
func (s *SessionStore) Shares(ctx context.Context, tableID string, method domain.SplitMethod) ([]domain.PaymentShare, error) {
	if !method.Valid() {
		return nil, ErrInvalidSplitMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, tableID)
	if err != nil {
		return nil, err
	}
	shares, err := split.ComputeShares(method, session.Diners, session.Orders)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionClosed {
		for i := range shares {
			shares[i].Paid = true
		}
	}
	return shares, nil
}

// FlowStatusFor reports the close negotiation state for a table (idle when
// no flow is in flight).
func (s *SessionStore) FlowStatusFor(tableID string) FlowStatus {
	s.mu.Lock()
	tf := s.flows[tableID]
	s.mu.Unlock()
	if tf == nil {
		return FlowStatus{State: closeflow.StateIdle}
	}
	return FlowStatus{State: tf.ctl.State(), Waiter: tf.ctl.Waiter()}
}

//
// Internals
//

// loadLocked resolves the latest session state for a table: the repository
// first, falling back to the in-process copy when storage is unavailable or
// has lost the write. Expired state is absent, wherever it lives. Caller
// holds s.mu.
func (s *SessionStore) loadLocked(ctx context.Context, tableID string) (*domain.TableSession, error) {
	now := s.Now()
	session, _, err := s.Repo.GetSession(ctx, s.DB, tableID, now)
	if err == nil {
		s.cache[tableID] = session
		return session, nil
	}
	if cached, ok := s.cache[tableID]; ok {
		if now.After(cached.CreatedAt.Add(s.TTL)) {
			s.evictLocked(ctx, tableID)
			return nil, ErrNoSession
		}
		return cached, nil
	}
	return nil, ErrNoSession
}

// evictLocked clears every trace of an expired session for a table: the
// cached copy, the persisted record and its device bindings, and any
// in-flight close negotiation. Caller holds s.mu.
func (s *SessionStore) evictLocked(ctx context.Context, tableID string) {
	delete(s.cache, tableID)
	s.dropFlowLocked(tableID)
	if err := s.Repo.DeleteSession(ctx, s.DB, tableID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		log.Warn().Err(err).Str("table", tableID).Msg("delete expired session failed")
	}
}

// dropFlowLocked tears down the table's close negotiation, if any. Caller
// holds s.mu.
func (s *SessionStore) dropFlowLocked(tableID string) {
	if tf, ok := s.flows[tableID]; ok {
		tf.ctl.Shutdown()
		delete(s.flows, tableID)
	}
}

// persistLocked caches the mutated session and writes it through. A write
// failure is logged; the in-memory copy stays authoritative. Caller holds
// s.mu.
func (s *SessionStore) persistLocked(ctx context.Context, session *domain.TableSession) {
	s.cache[session.TableNumber] = session
	if err := s.Repo.PutSession(ctx, s.DB, session, s.TTL, s.Now()); err != nil {
		log.Error().Err(err).Str("table", session.TableNumber).Msg("persist session failed")
	}
}

// viewLocked returns a deep copy of the session with IsCurrentUser set for
// currentDinerID. Copies keep callers from holding mutable references into
// the aggregate. Caller holds s.mu.
func (s *SessionStore) viewLocked(session *domain.TableSession, currentDinerID string) *domain.TableSession {
	out := *session
	out.Diners = make([]domain.Diner, len(session.Diners))
	copy(out.Diners, session.Diners)
	out.Cart = make([]domain.CartItem, len(session.Cart))
	copy(out.Cart, session.Cart)
	out.Orders = make([]domain.OrderRecord, len(session.Orders))
	copy(out.Orders, session.Orders)
	for i := range out.Diners {
		out.Diners[i].IsCurrentUser = out.Diners[i].ID == currentDinerID
	}
	return &out
}
