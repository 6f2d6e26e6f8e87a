package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the scheduling core.
const (
	EventAppointmentBooked    = "scheduling.appointment.booked.v1"
	EventAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	EventDayClosed            = "scheduling.day.closed.v1"
	EventWaitlistNotify       = "scheduling.waitlist.notify.v1"
)
