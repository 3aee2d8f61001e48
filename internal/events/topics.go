package events

import "github.com/ariefcatur/go-surprise-bags/internal/reservation"

const (
	TopicOrderReserved  = "bags.order.reserved"
	TopicOrderConfirmed = "bags.order.confirmed"
	TopicOrderCancelled = "bags.order.cancelled"
)

var topicByEvent = map[string]string{
	reservation.EventOrderReserved:  TopicOrderReserved,
	reservation.EventOrderConfirmed: TopicOrderConfirmed,
	reservation.EventOrderCancelled: TopicOrderCancelled,
}

func TopicFor(event string) (string, bool) {
	t, ok := topicByEvent[event]
	return t, ok
}

func AllTopics() []string {
	return []string{TopicOrderReserved, TopicOrderConfirmed, TopicOrderCancelled}
}

// Partition key = order_id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
