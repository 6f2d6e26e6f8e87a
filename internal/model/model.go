package model

import "time"

// AppointmentKind distinguishes real bookings from the synthetic rows that
// represent administrative unavailability.
type AppointmentKind string

const (
	KindBooking    AppointmentKind = "booking"
	KindRangeBlock AppointmentKind = "range_block" // one 30-minute increment of a blocked range
	KindDayClosure AppointmentKind = "day_closure" // whole day closed for the provider
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusBlocked   AppointmentStatus = "BLOCKED"
)

// SlotStepMinutes is the fixed grid the slot generator and range blocks walk.
const SlotStepMinutes = 30

type Appointment struct {
	ID              string
	Kind            AppointmentKind
	ClientID        string
	ProviderID      string
	LocationID      string
	ServiceID       string
	Date            string // YYYY-MM-DD
	StartMinute     int    // minutes since midnight
	DurationMinutes int
	Status          AppointmentStatus
	Price           float64
	SqueezeIn       bool
	Notes           string
	Reason          string // block/closure reason
	CancelledAt     *time.Time
	CreatedAt       time.Time
}

// Blocks reports whether the row occupies provider time for slot generation.
// Cancelled rows and day closures never count as busy intervals; closures are
// handled by the day-closure short circuit instead.
func (a Appointment) Blocks() bool {
	if a.Status == StatusCancelled {
		return false
	}
	return a.Kind == KindBooking || a.Kind == KindRangeBlock
}

func (a Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMinutes
}

type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueInService QueueStatus = "IN_SERVICE"
	QueueDone      QueueStatus = "DONE"
	QueueCancelled QueueStatus = "CANCELLED"
)

type QueueEntry struct {
	ID          string
	ClientID    string
	ServiceID   string
	ProviderID  string // optional: empty means "any provider"
	Date        string
	Status      QueueStatus
	ArrivalTime time.Time
	QueueNumber int
}

type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "WAITING"
	WaitlistNotified  WaitlistStatus = "NOTIFIED"
	WaitlistDone      WaitlistStatus = "DONE"
	WaitlistCancelled WaitlistStatus = "CANCELLED"
)

type WaitingListEntry struct {
	ID         string
	ClientID   string
	ServiceID  string // optional
	ProviderID string // optional
	Date       string
	Notes      string
	Notified   bool
	Status     WaitlistStatus
	CreatedAt  time.Time
}

// WaitlistMatch records a freed slot surfaced against a waiting entry after a
// cancellation. Operators review matches and decide whom to notify; nothing is
// booked automatically.
type WaitlistMatch struct {
	ID               string
	EntryID          string
	AppointmentID    string
	Date             string
	FreedStartMinute int
	CreatedAt        time.Time
}

// DayAvailability is one weekday of a provider's recurring template.
// Break bounds are both set or both nil.
type DayAvailability struct {
	Weekday     int // 0=Sunday .. 6=Saturday
	IsActive    bool
	StartMinute int
	EndMinute   int
	BreakStart  *int
	BreakEnd    *int
	LocationID  string
}
