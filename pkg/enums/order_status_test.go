package enums

import "testing"

func TestOrderStatusTerminal(t *testing.T) {
	if OrderStatusProcessing.Terminal() || OrderStatusShipped.Terminal() || OrderStatusOutForDelivery.Terminal() {
		t.Fatal("only Delivered is terminal")
	}
	if !OrderStatusDelivered.Terminal() {
		t.Fatal("Delivered must be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("Out for Delivery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusOutForDelivery {
		t.Fatalf("unexpected status %q", status)
	}
	if _, err := ParseOrderStatus("Lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
