// Package domain defines the core aggregate for the shared-table ordering
// experience: the TableSession with its diners, shared cart, and order
// history, plus the persistence records that carry it between restarts.
// Session content is serialized as JSON into a key/value record
// (TableSessionRecord) rather than normalized into relational tables, so the
// write path can always re-serialize the full aggregate in one statement.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a table session.
type SessionStatus string

const (
	// SessionActive allows cart mutation and round submission.
	SessionActive SessionStatus = "active"
	// SessionClosed freezes the session; no cart mutation or new rounds.
	SessionClosed SessionStatus = "closed"
)

// OrderStatus tracks a submitted round through the service lifecycle.
// Terminal states (paid, cancelled) are reachable only via the close-table
// flow, never by the kitchen-side progression.
type OrderStatus string

const (
	OrderSubmitted OrderStatus = "submitted"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// orderStatusNext encodes the allowed forward transitions for order rounds.
var orderStatusNext = map[OrderStatus][]OrderStatus{
	OrderSubmitted: {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
	OrderDelivered: {OrderPaid},
}

// CanTransition reports whether moving from s to next is a legal status change.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderStatusNext[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

// SplitMethod selects the algorithm used to allocate a table's total among
// diners.
type SplitMethod string

const (
	SplitEqual         SplitMethod = "equal"
	SplitByConsumption SplitMethod = "by_consumption"
	// SplitCustom is an extension point: shares come back zeroed and the
	// caller overrides amounts before presenting them.
	SplitCustom SplitMethod = "custom"
)

// Valid reports whether m is a recognized split method.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitByConsumption, SplitCustom:
		return true
	}
	return false
}

// Diner is one participant at the table. Within a session diner IDs are
// unique; at most one diner per device carries IsCurrentUser.
type Diner struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`

	// IsCurrentUser marks the diner bound to the calling device.
	IsCurrentUser bool `json:"is_current_user"`

	// Optional authenticated identity. Empty for guest diners.
	AuthUserID string `json:"auth_user_id,omitempty"`
	AuthEmail  string `json:"auth_email,omitempty"`

	// DeviceID identifies the device that created this diner, used to
	// deduplicate guest joins (name+device).
	DeviceID string `json:"device_id,omitempty"`
}

// CartItem is one line in the shared cart. Name, price, and image are
// denormalized snapshots taken at add time so history survives catalog edits.
type CartItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"image_url,omitempty"`
	Quantity  int       `json:"quantity"`
	DinerID   string    `json:"diner_id"`
	DinerName string    `json:"diner_name"`
	Note      string    `json:"note,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Subtotal returns price × quantity for this line.
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// OrderRecord is one submitted round. Items are an immutable snapshot of the
// shared cart at submission time; the record is never mutated after creation
// except for status progression and its timestamps.
type OrderRecord struct {
	ID          string      `json:"id"`
	Round       int         `json:"round"`
	Items       []CartItem  `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	Status      OrderStatus `json:"status"`
	SubmittedBy string      `json:"submitted_by"`
	SubmittedAt time.Time   `json:"submitted_at"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// TableSession is the aggregate shared by all diners at one physical table.
// The session store is its only writer; everything else reads via selectors.
type TableSession struct {
	ID          string        `json:"id"`
	TableNumber string        `json:"table_number"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	Diners      []Diner       `json:"diners"`
	Cart        []CartItem    `json:"cart"`
	Orders      []OrderRecord `json:"orders"`
}

// CartTotal sums price × quantity across the live cart.
func (s *TableSession) CartTotal() float64 {
	var total float64
	for _, it := range s.Cart {
		total += it.Subtotal()
	}
	return total
}

// TotalConsumed sums the subtotals of all non-cancelled rounds.
func (s *TableSession) TotalConsumed() float64 {
	var total float64
	for _, o := range s.Orders {
		if o.Status != OrderCancelled {
			total += o.Subtotal
		}
	}
	return total
}

// CurrentRound returns the latest round number, 0 when nothing was submitted.
// Rounds are gapless, so the latest equals the count, but the max is taken
// from the records themselves.
func (s *TableSession) CurrentRound() int {
	max := 0
	for _, o := range s.Orders {
		if o.Round > max {
			max = o.Round
		}
	}
	return max
}

// DinerByID returns the diner with the given id, or nil.
func (s *TableSession) DinerByID(id string) *Diner {
	for i := range s.Diners {
		if s.Diners[i].ID == id {
			return &s.Diners[i]
		}
	}
	return nil
}

// PaymentShare is one diner's computed slice of the bill. It is derived from
// the order history plus a split method on demand, never persisted as a
// source of truth.
type PaymentShare struct {
	DinerID   string     `json:"diner_id"`
	DinerName string     `json:"diner_name"`
	Amount    float64    `json:"amount"`
	Paid      bool       `json:"paid"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	Method    string     `json:"method,omitempty"`
}

// TableSessionRecord is the persistence envelope for a TableSession: the full
// aggregate serialized as JSON plus the logical lifetime window. A record
// whose ExpiresAt has passed is treated as absent regardless of row presence.
//
// Fields:
//   - TableID: the table identifier, primary key (one live session per table).
//   - SessionJSON: the serialized TableSession.
//   - CreatedAt / ExpiresAt: lifetime window (ExpiresAt = CreatedAt + TTL).
type TableSessionRecord struct {
	TableID     string         `json:"table_id"     gorm:"type:varchar(32);primaryKey"`
	SessionJSON string         `json:"-"            gorm:"type:text;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"   gorm:"index;not null"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for TableSessionRecord.
func (TableSessionRecord) TableName() string { return "table_session_records" }

// Expired reports whether the record's logical lifetime has passed.
func (r *TableSessionRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// DeviceBinding ties a device to its diner identity within a table session.
// Leaving the table deletes the binding without touching the session itself.
type DeviceBinding struct {
	DeviceID  string         `json:"device_id" gorm:"type:varchar(64);primaryKey"`
	TableID   string         `json:"table_id"  gorm:"type:varchar(32);not null;index"`
	DinerID   string         `json:"diner_id"  gorm:"type:char(36);not null"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for DeviceBinding.
func (DeviceBinding) TableName() string { return "device_bindings" }
