package orders

type Status string

// StatusAwaitingDetails is where auction orders start: the buyer still owes shipping details.
const StatusAwaitingDetails Status = "awaiting_details"

type PaymentStatus string

const PaymentPending PaymentStatus = "pending"

type SaleType string

const SaleAuction SaleType = "auction"

// PaymentCashOnDelivery is the only payment method the marketplace supports.
const PaymentCashOnDelivery = "cod"
