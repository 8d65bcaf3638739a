package eventq

import "testing"

func TestOffer(t *testing.T) {
	ch := make(chan int, 1)
	if !Offer(ch, 1) {
		t.Fatal("Offer on an empty buffer = false")
	}
	if Offer(ch, 2) {
		t.Fatal("Offer on a full buffer = true")
	}
	if got := <-ch; got != 1 {
		t.Fatalf("received %d, want 1", got)
	}

	close(ch)
	if Offer(ch, 3) {
		t.Fatal("Offer on a closed channel = true")
	}
}
