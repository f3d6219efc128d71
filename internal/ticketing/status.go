package ticketing

// PaymentStatus tracks an order through the payment lifecycle.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSucceeded PaymentStatus = "succeeded"
	StatusFailed    PaymentStatus = "failed"
	StatusCanceled  PaymentStatus = "canceled"
)

// Cancellation is allowed from every non-canceled state: a buyer may cancel
// before the gateway confirms, and a succeeded order cancels into a refund.
var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	StatusPending:   {StatusSucceeded: true, StatusFailed: true, StatusCanceled: true},
	StatusSucceeded: {StatusCanceled: true},
	StatusFailed:    {StatusCanceled: true},
	StatusCanceled:  {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}
