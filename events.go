package stampede

// Observer receives protocol lifecycle events. Implementations must be
// safe for concurrent use. Observers are the seam for wiring metrics;
// this package itself emits nothing beyond logs.
type Observer interface {
	On(eventData EventData)
}

// Event represents a protocol event type.
type Event int

const (
	// EventOwner is emitted when a call acquires ownership and runs the
	// wrapped computation for the current epoch.
	EventOwner Event = iota
	// EventHit is emitted when a call receives a broadcast value, either
	// observed at acquire time or delivered during the wait.
	EventHit
	// EventWait is emitted when a non-owning call blocks on the value queue.
	EventWait
	// EventFallback is emitted when a non-owning call computes locally
	// after a miss, a wait timeout, or a failure notification. Fallback
	// results are never published.
	EventFallback
	// EventDegraded is emitted when a classified store failure is absorbed
	// and the call proceeds uncoordinated.
	EventDegraded
	// EventCoalesced is emitted when a call attaches to an in-flight
	// attempt for the same key within this process.
	EventCoalesced
)

// EventData carries the details of a protocol event.
type EventData struct {
	Event     Event
	Namespace string
	Key       string
}
