package price

import "testing"

func TestCmp(t *testing.T) {
	cases := []struct {
		a, b Price
		want int
	}{
		{Price{1, 2}, Price{2, 4}, 0},
		{Price{1, 2}, Price{1, 3}, 1},
		{Price{1, 3}, Price{1, 2}, -1},
		{Price{5, 7}, Price{5, 7}, 0},
	}
	for _, c := range cases {
		if got := Cmp(c.a, c.b); got != c.want {
			t.Errorf("Cmp(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestEqComparesValueNotStructure(t *testing.T) {
	if !Eq(Price{1, 2}, Price{2, 4}) {
		t.Fatal("expected 1/2 == 2/4 under Cmp")
	}
}

func TestGTE(t *testing.T) {
	if !GTE(Price{1, 2}, Price{1, 2}) {
		t.Fatal("expected GTE to hold for equal prices")
	}
	if GTE(Price{1, 3}, Price{1, 2}) {
		t.Fatal("1/3 should not be >= 1/2")
	}
}

func TestBigDivideExact(t *testing.T) {
	got, ok := BigDivide(10, 3, 5, RoundDown)
	if !ok || got != 6 {
		t.Fatalf("BigDivide(10,3,5,down) = %d,%v want 6,true", got, ok)
	}
}

func TestBigDivideRounding(t *testing.T) {
	down, ok := BigDivide(10, 1, 3, RoundDown)
	if !ok || down != 3 {
		t.Fatalf("round down = %d,%v want 3,true", down, ok)
	}
	up, ok := BigDivide(10, 1, 3, RoundUp)
	if !ok || up != 4 {
		t.Fatalf("round up = %d,%v want 4,true", up, ok)
	}
}

func TestBigDivideWideIntermediate(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	got, ok := BigDivide(maxInt64, maxInt64, maxInt64, RoundDown)
	if !ok || got != maxInt64 {
		t.Fatalf("BigDivide(max,max,max) = %d,%v want %d,true", got, ok, maxInt64)
	}
}

func TestBigDivideOverflow(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	_, ok := BigDivide(maxInt64, maxInt64, 1, RoundDown)
	if ok {
		t.Fatal("expected overflow to be reported as not ok")
	}
}

func TestBigDivideInvalidPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on c <= 0")
		}
	}()
	BigDivide(1, 1, 0, RoundDown)
}
