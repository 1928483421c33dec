package domain

// StatusPair is the two-axis order state.
type StatusPair struct {
	Order   OrderStatus
	Payment PaymentStatus
}

// StatusChange requests a new order and/or payment status. Nil fields are left untouched.
type StatusChange struct {
	Order   *OrderStatus
	Payment *PaymentStatus
}

// SlipEffect describes how the active slip must change alongside a transition.
type SlipEffect struct {
	MarkVerified      bool
	LinkPaymentStatus *PaymentStatus
}

func (e SlipEffect) IsZero() bool {
	return !e.MarkVerified && e.LinkPaymentStatus == nil
}

// Transition is a decided status move together with the side effects it requires.
// Planning is pure; applying the effects is the caller's job.
type Transition struct {
	From StatusPair
	To   StatusPair

	// ReleaseStock returns every item quantity to stock.
	ReleaseStock bool
	// ReserveStock takes every item quantity from stock again.
	ReserveStock bool

	Slip SlipEffect
}

func (t Transition) StatusChanged() bool {
	return t.From != t.To
}

// PlanStatusChange decides a back-office status update.
// Only cancellation is guarded. stockReleased reports whether the order's items
// are currently back in stock: cancelling releases them once, and moving a
// released order to any status other than cancelled or refunded reserves them again.
func PlanStatusChange(current StatusPair, stockReleased bool, slip *Slip, change StatusChange) (Transition, error) {
	if change.Order == nil && change.Payment == nil {
		return Transition{}, ErrNothingToUpdate
	}

	t := Transition{From: current, To: current}

	if change.Order != nil {
		target := *change.Order
		if _, ok := validOrderStatuses[target]; !ok {
			return Transition{}, ErrUnknownStatus
		}

		switch {
		case target == OrderStatusCancelled:
			if !current.Order.IsCancellable() {
				return Transition{}, NonCancellableError(current.Order)
			}
			t.ReleaseStock = !stockReleased
		case stockReleased && target.HoldsStock():
			t.ReserveStock = true
		}

		t.To.Order = target
	}

	if change.Payment != nil {
		target := *change.Payment
		if _, ok := validPaymentStatuses[target]; !ok {
			return Transition{}, ErrUnknownStatus
		}

		t.To.Payment = target
		t.Slip = planSlipEffect(slip, target)
	}

	return t, nil
}

// PlanCancellation decides an explicit cancel request.
func PlanCancellation(current StatusPair, stockReleased bool) (Transition, error) {
	cancelled := OrderStatusCancelled
	return PlanStatusChange(current, stockReleased, nil, StatusChange{Order: &cancelled})
}

// PlanSlipAttached moves a pending order to processing once a new slip is on file.
func PlanSlipAttached(current StatusPair) Transition {
	t := Transition{From: current, To: current}
	if current.Order == OrderStatusPending {
		t.To.Order = OrderStatusProcessing
	}
	return t
}

// PlanSlipRemoved reverts an order to pending unless it already shipped or ended.
func PlanSlipRemoved(current StatusPair) Transition {
	t := Transition{From: current, To: current}
	if current.Order.IsCancellable() {
		t.To.Order = OrderStatusPending
	}
	return t
}

func planSlipEffect(slip *Slip, target PaymentStatus) SlipEffect {
	if slip == nil {
		return SlipEffect{}
	}

	switch target {
	case PaymentStatusVerified:
		// verification is a one-way fact
		if !slip.Verified {
			return SlipEffect{MarkVerified: true, LinkPaymentStatus: &target}
		}
	case PaymentStatusRefunded, PaymentStatusFailed:
		if slip.PaymentStatus != target {
			return SlipEffect{LinkPaymentStatus: &target}
		}
	}

	return SlipEffect{}
}
