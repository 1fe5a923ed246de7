package model

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusSubmitted, OrderStatusAccepted},
		{OrderStatusSubmitted, OrderStatusCancelled},
		{OrderStatusAccepted, OrderStatusCompleted},
		{OrderStatusAccepted, OrderStatusFailed},
		{OrderStatusAccepted, OrderStatusCancelled},
		{OrderStatusAccepted, OrderStatusNeedNewInput},
		{OrderStatusNeedNewInput, OrderStatusSubmitted},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to OrderStatus }{
		{OrderStatusSubmitted, OrderStatusCompleted},
		{OrderStatusSubmitted, OrderStatusFailed},
		{OrderStatusCompleted, OrderStatusAccepted},
		{OrderStatusFailed, OrderStatusSubmitted},
		{OrderStatusCancelled, OrderStatusAccepted},
		{OrderStatusNeedNewInput, OrderStatusCompleted},
		{OrderStatusAccepted, OrderStatusSubmitted},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusSubmitted, OrderStatusAccepted, OrderStatusNeedNewInput} {
		if s.Terminal() {
			t.Errorf("did not expect %s to be terminal", s)
		}
	}
}

func TestPackageValid(t *testing.T) {
	for _, p := range []Package{"1", "2", "3", "6", "12"} {
		if !p.Valid() {
			t.Errorf("expected package %s to be valid", p)
		}
	}
	for _, p := range []Package{"", "0", "4", "24", "month"} {
		if p.Valid() {
			t.Errorf("did not expect package %s to be valid", p)
		}
	}
}

func TestSellerDisplayName(t *testing.T) {
	cases := []struct {
		seller Seller
		want   string
	}{
		{Seller{ID: "1", Nickname: "Ann"}, "Ann"},
		{Seller{ID: "1", FirstName: "Ann", Username: "ann"}, "Ann (@ann)"},
		{Seller{ID: "1", FirstName: "Ann"}, "Ann"},
		{Seller{ID: "1", Username: "ann"}, "@ann"},
		{Seller{ID: "77"}, "seller 77"},
	}
	for _, tc := range cases {
		if got := tc.seller.DisplayName(); got != tc.want {
			t.Errorf("DisplayName() = %q, want %q", got, tc.want)
		}
	}
}
