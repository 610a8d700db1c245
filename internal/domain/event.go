package domain

// EventType tags the messages exchanged over a job's event channel.
type EventType string

// Event types understood by the aggregator and the channel.
const (
	// EventPartial carries a single factor before the result set is complete.
	EventPartial EventType = "partial"

	// EventFinal carries the authoritative, complete factor set.
	EventFinal EventType = "final"

	// EventJoin is sent by the client once per channel open to subscribe
	// to a job's events.
	EventJoin EventType = "join"
)

// Event is a validated inbound stream message. The concrete type is one of
// PartialEvent, FinalEvent or UnknownEvent.
type Event interface {
	// Type returns the event's wire tag.
	Type() EventType

	isEvent()
}

// PartialEvent delivers one factor while the job is still streaming.
type PartialEvent struct {
	Factor Factor
}

// Type implements Event.
func (PartialEvent) Type() EventType { return EventPartial }
func (PartialEvent) isEvent()        {}

// FinalEvent delivers the complete factor set and ends the streaming phase.
type FinalEvent struct {
	Factors []Factor
}

// Type implements Event.
func (FinalEvent) Type() EventType { return EventFinal }
func (FinalEvent) isEvent()        {}

// UnknownEvent is any well-formed message whose tag the aggregator does not
// handle. Other consumers of the same channel may still care about it.
type UnknownEvent struct {
	// Kind is the raw type tag as received.
	Kind string

	// Raw holds the undecoded data payload, if any.
	Raw []byte
}

// Type implements Event.
func (e UnknownEvent) Type() EventType { return EventType(e.Kind) }
func (UnknownEvent) isEvent()          {}

// JoinMessage is the outbound subscription message for a job.
type JoinMessage struct {
	Type  EventType `json:"type"`
	JobID string    `json:"job_id"`
}

// NewJoinMessage builds the join message for jobID.
func NewJoinMessage(jobID string) JoinMessage {
	return JoinMessage{Type: EventJoin, JobID: jobID}
}
