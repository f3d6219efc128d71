package ticketing

const (
	TopicOrderEvents     = "ticket.order.events"
	TopicScheduleUpdated = "event.schedule.updated"
)

// Partition key = order id (or event id for schedule updates) so every event
// for one aggregate keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }
