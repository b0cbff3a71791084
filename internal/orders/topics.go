package orders

const (
	TopicAuctionSettled = "auction.settled"
	TopicOrderCreated   = "order.created"
)

// Partition key = auction_id for settlement events, order_id for order events.
func PartitionKey(id string) []byte { return []byte(id) }
