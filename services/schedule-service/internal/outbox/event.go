package outbox

// Event is written to outbox_events in the same transaction as the change it announces.
// The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateDoctorSchedule  = "doctor_schedule"
	EventAvailabilityUpdated = "schedule.availability.updated.v1"
)
