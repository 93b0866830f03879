package domain

// OrderStatus is the lifecycle state of an order. Transitions are only legal
// through the lifecycle service, which enforces the table below with a
// compare-and-set on the current status.
type OrderStatus string

const (
	StatusWaitingPayment             OrderStatus = "WAITING_PAYMENT"
	StatusWaitingPaymentConfirmation OrderStatus = "WAITING_PAYMENT_CONFIRMATION"
	StatusProcessing                 OrderStatus = "PROCESSING"
	StatusShipped                    OrderStatus = "SHIPPED"
	StatusConfirmed                  OrderStatus = "CONFIRMED"
	StatusCancelled                  OrderStatus = "CANCELLED"
)

var legalTransitions = map[OrderStatus][]OrderStatus{
	StatusWaitingPayment:             {StatusWaitingPaymentConfirmation, StatusProcessing, StatusCancelled},
	StatusWaitingPaymentConfirmation: {StatusProcessing, StatusWaitingPayment, StatusCancelled},
	StatusProcessing:                 {StatusShipped, StatusCancelled},
	StatusShipped:                    {StatusConfirmed},
	StatusConfirmed:                  {},
	StatusCancelled:                  {},
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s OrderStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// Cancellable reports whether the order may still be cancelled. Shipped and
// confirmed orders are not.
func (s OrderStatus) Cancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// PaymentStatus tracks whether the order has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// PaymentMethod discriminates the checkout flow. Gateway charges settle
// through the payment provider and debit stock at creation; manual transfers
// wait for an uploaded proof and an admin review.
type PaymentMethod string

const (
	PaymentGateway        PaymentMethod = "GATEWAY"
	PaymentManualTransfer PaymentMethod = "MANUAL_TRANSFER"
)

// Instant reports whether the method settles synchronously at checkout.
func (m PaymentMethod) Instant() bool {
	return m == PaymentGateway
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentGateway || m == PaymentManualTransfer
}

// ProofStatus is the review state of an uploaded payment proof.
type ProofStatus string

const (
	ProofPending  ProofStatus = "PENDING"
	ProofVerified ProofStatus = "VERIFIED"
	ProofRejected ProofStatus = "REJECTED"
)
