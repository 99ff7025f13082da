package domain

import "strings"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusCanceled PaymentStatus = "canceled"
	PaymentStatusExpired  PaymentStatus = "expired"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusCanceled, PaymentStatusExpired, PaymentStatusRefunded:
		return true
	}
	return false
}

func ParsePaymentStatus(value string) (PaymentStatus, bool) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(value)))
	return status, status.IsValid()
}

// SignalSource names the ingress a candidate status came from.
type SignalSource string

const (
	SourceCheckout SignalSource = "checkout"
	SourceWebhook  SignalSource = "webhook"
	SourcePolling  SignalSource = "polling"
	SourceCheck    SignalSource = "check"
	SourceManual   SignalSource = "manual"
)

// NormalizeGatewayStatus maps Midtrans transaction_status and fraud_status
// onto the internal vocabulary. Unknown input never escalates past pending.
func NormalizeGatewayStatus(gatewayStatus, fraudStatus string) PaymentStatus {
	if strings.EqualFold(strings.TrimSpace(fraudStatus), "deny") {
		return PaymentStatusFailed
	}

	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case "capture", "settlement":
		return PaymentStatusPaid
	case "deny":
		return PaymentStatusFailed
	case "cancel":
		return PaymentStatusCanceled
	case "expire":
		return PaymentStatusExpired
	default:
		return PaymentStatusPending
	}
}

// gatewayTransitions lists what a gateway-sourced signal may move a stored
// status to. Anything missing is rejected.
var gatewayTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusCanceled,
		PaymentStatusExpired,
	},
	PaymentStatusFailed:   {},
	PaymentStatusCanceled: {PaymentStatusPaid},
	PaymentStatusExpired:  {PaymentStatusPaid},
	PaymentStatusPaid:     {},
	PaymentStatusRefunded: {},
}

const (
	ReasonApplied        = "applied"
	ReasonUnchanged      = "unchanged"
	ReasonFraudOverride  = "fraud_override"
	ReasonManualOverride = "manual_override"
	ReasonPaidIsFinal    = "paid_is_final"
	ReasonRefundIsFinal  = "refund_is_final"
	ReasonFailedIsFinal  = "failed_is_final"
	ReasonNotAllowed     = "transition_not_allowed"
	ReasonInvalidStatus  = "invalid_status"
)

type Decision struct {
	Apply       bool
	NeedsReview bool
	Reason      string
}

// DecideTransition guards a candidate status against the freshly read
// current one. Once paid, only a fraud deny or a manual override moves it.
func DecideTransition(current, candidate PaymentStatus, source SignalSource, fraudOverride bool) Decision {
	if !candidate.IsValid() {
		return Decision{Reason: ReasonInvalidStatus}
	}
	if current == candidate {
		return Decision{Reason: ReasonUnchanged}
	}
	if source == SourceManual {
		return Decision{Apply: true, Reason: ReasonManualOverride}
	}

	switch current {
	case PaymentStatusPaid:
		if candidate == PaymentStatusFailed && fraudOverride {
			return Decision{Apply: true, NeedsReview: true, Reason: ReasonFraudOverride}
		}
		return Decision{Reason: ReasonPaidIsFinal}
	case PaymentStatusRefunded:
		return Decision{Reason: ReasonRefundIsFinal}
	case PaymentStatusFailed:
		// a denied or fraud-flagged payment is only reopened by an operator
		return Decision{Reason: ReasonFailedIsFinal}
	}

	if CanTransition(current, candidate) {
		return Decision{Apply: true, Reason: ReasonApplied}
	}
	return Decision{Reason: ReasonNotAllowed}
}

func CanTransition(from, to PaymentStatus) bool {
	allowed, exists := gatewayTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusCancel     ItemStatus = "cancel"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusCompleted, ItemStatusCancel:
		return true
	}
	return false
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:    {ItemStatusProcessing, ItemStatusCancel},
	ItemStatusProcessing: {ItemStatusCompleted, ItemStatusCancel},
	ItemStatusCompleted:  {ItemStatusCancel},
	ItemStatusCancel:     {},
}

// CanTransitionItem reports whether a store may move an item between the two
// statuses. Repeating the current status is allowed and treated as a no-op.
func CanTransitionItem(from, to ItemStatus) bool {
	if from == to {
		return to.IsValid()
	}
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
