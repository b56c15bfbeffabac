package exchange

import (
	"testing"

	"github.com/ledgerdex/matchcore/internal/price"
)

func TestExchangeNormal(t *testing.T) {
	// price 1/2 sheep per wheat unit: selling 100 wheat wants 50 sheep.
	r := Exchange(100, price.Price{N: 1, D: 2}, 1000, 1000)
	if r.Wheat != 100 || r.Sheep != 50 {
		t.Fatalf("got %+v", r)
	}
	if r.Classify() != Normal {
		t.Fatalf("expected Normal, got %v", r.Classify())
	}
}

func TestExchangeClampedByMaxWheatReceive(t *testing.T) {
	r := Exchange(100, price.Price{N: 1, D: 2}, 40, 1000)
	if r.Wheat != 40 || r.Sheep != 20 {
		t.Fatalf("got %+v", r)
	}
	if !r.Reduced {
		t.Fatal("expected reduced")
	}
}

func TestExchangeClampedBySheepSendRoundsDownWheat(t *testing.T) {
	// price 1/1: wheat_received=10 -> sheep=10, but cap ms=7 forces
	// sheep=7, and wheat back-computed floor(7*1/1)=7.
	r := Exchange(10, price.Price{N: 1, D: 1}, 1000, 7)
	if r.Sheep != 7 || r.Wheat != 7 {
		t.Fatalf("got %+v", r)
	}
}

func TestExchangeOverflowGuardS6(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	r := Exchange(maxInt64, price.Price{N: 3, D: 1}, maxInt64, maxInt64)
	if !r.Reduced {
		t.Fatal("expected reduced=true on overflow")
	}
	if r.Sheep != maxInt64 {
		t.Fatalf("expected sheep saturated to max int64, got %d", r.Sheep)
	}
}

func TestClassifyBogus(t *testing.T) {
	r := Result{Wheat: 0, Sheep: 0, Reduced: false}
	if r.Classify() != Bogus {
		t.Fatalf("expected Bogus, got %v", r.Classify())
	}
}

func TestClassifyReducedToZero(t *testing.T) {
	r := Result{Wheat: 0, Sheep: 5, Reduced: true}
	if r.Classify() != ReducedToZero {
		t.Fatalf("expected ReducedToZero, got %v", r.Classify())
	}
}
