package ports

// OutboxEntryID identifies one appended message, monotonically increasing.
type OutboxEntryID uint64

// OutboxMessage is a bus publish staged for durable delivery.
type OutboxMessage struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

// Outbox stages outgoing messages on disk so publishes accepted before a
// broker outage are replayed after reconnection.
type Outbox interface {
	Append(msg OutboxMessage) (OutboxEntryID, error)
	Iterate(from OutboxEntryID, fn func(id OutboxEntryID, msg OutboxMessage) error) error
	Commit(upto OutboxEntryID) error
	Stats() OutboxStats
}

// OutboxStats reports durable-publish progress.
type OutboxStats struct {
	OldestUncommitted OutboxEntryID
	LatestAppended    OutboxEntryID
	SizeBytes         int64
}
