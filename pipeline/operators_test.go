package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFrom_Iterator(t *testing.T) {
	got, err := Collect(context.Background(), From(SliceIterator([]string{"a", "b"})))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestErrorIterator(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(context.Background(), From(ErrorIterator[int](boom)))
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestMap(t *testing.T) {
	doubled := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{2, 4, 6}) {
		t.Errorf("got %v, want [2 4 6]", got)
	}
}

func TestMap_Error(t *testing.T) {
	fail := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if !intSliceEqual(got, []int{1}) {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestFilter(t *testing.T) {
	evens := Filter(FromSlice([]int{1, 2, 3, 4}), func(n int) bool { return n%2 == 0 })
	got, err := Collect(context.Background(), evens)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{2, 4}) {
		t.Errorf("got %v, want [2 4]", got)
	}
}

func TestTap(t *testing.T) {
	var seen []int
	tapped := Tap(FromSlice([]int{1, 2}), func(_ context.Context, n int) error {
		seen = append(seen, n)
		return nil
	})
	got, err := Collect(context.Background(), tapped)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, seen) {
		t.Errorf("tap saw %v, pipeline yielded %v", seen, got)
	}
}

func TestTap_Error(t *testing.T) {
	tapped := Tap(FromSlice([]int{1, 2}), func(_ context.Context, n int) error {
		return fmt.Errorf("tap %d", n)
	})
	_, err := Collect(context.Background(), tapped)
	if err == nil || !strings.Contains(err.Error(), "tap 1") {
		t.Errorf("expected tap error, got %v", err)
	}
}

func TestConcat(t *testing.T) {
	joined := Concat(FromSlice([]string{"header"}), FromSlice([]string{"a", "b"}))
	got, err := Collect(context.Background(), joined)
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"header", "a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestDrain_Run(t *testing.T) {
	var sum int
	err := Drain(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) error {
		sum += n
		return nil
	}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum != 6 {
		t.Errorf("expected sum 6, got %d", sum)
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	calls := 0
	err := ForEach(context.Background(), FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) error {
		calls++
		if n == 2 {
			return errors.New("stop")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		size  int
		want  [][]int
	}{
		{"by size", []int{1, 2, 3, 4, 5}, 2, [][]int{{1, 2}, {3, 4}, {5}}},
		{"exact multiple", []int{1, 2, 3, 4}, 2, [][]int{{1, 2}, {3, 4}}},
		{"zero defaults to one", []int{1, 2}, 0, [][]int{{1}, {2}}},
		{"empty", []int{}, 3, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Collect(context.Background(), Batch(FromSlice(tc.input), tc.size, 0))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d batches, got %d: %v", len(tc.want), len(got), got)
			}
			for i := range got {
				if !intSliceEqual(got[i], tc.want[i]) {
					t.Errorf("batch %d: got %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestBatch_PartialBeforeError(t *testing.T) {
	src := Concat(FromSlice([]int{1}), From(ErrorIterator[int](errors.New("late"))))
	it := Batch(src, 5, 0).Iter(context.Background())
	defer it.Close()

	first, ok, err := it.Next(context.Background())
	if err != nil || !ok || !intSliceEqual(first, []int{1}) {
		t.Fatalf("expected partial batch [1], got %v ok=%v err=%v", first, ok, err)
	}
	if _, _, err := it.Next(context.Background()); err == nil {
		t.Error("expected error on next call")
	}
}

// onceErrIter fails a single time after its values, then reports exhaustion.
type onceErrIter struct {
	vals   []int
	failed bool
}

func (it *onceErrIter) Next(context.Context) (int, bool, error) {
	if len(it.vals) > 0 {
		v := it.vals[0]
		it.vals = it.vals[1:]
		return v, true, nil
	}
	if !it.failed {
		it.failed = true
		return 0, false, errors.New("sink gone")
	}
	return 0, false, nil
}

func (it *onceErrIter) Close() error { return nil }

func TestBatch_ErrorReportedOnce(t *testing.T) {
	it := Batch(From[int](&onceErrIter{vals: []int{1, 2, 3}}), 2, 0).Iter(context.Background())
	defer it.Close()
	ctx := context.Background()

	var batches [][]int
	var gotErr error
	for {
		b, ok, err := it.Next(ctx)
		if err != nil {
			gotErr = err
			break
		}
		if !ok {
			break
		}
		batches = append(batches, b)
	}
	if gotErr == nil || gotErr.Error() != "sink gone" {
		t.Fatalf("expected the source error, got %v", gotErr)
	}
	if len(batches) != 2 || !intSliceEqual(batches[0], []int{1, 2}) || !intSliceEqual(batches[1], []int{3}) {
		t.Errorf("unexpected batches %v", batches)
	}
	if _, ok, err := it.Next(ctx); ok || err != nil {
		t.Errorf("expected exhaustion after the error, got ok=%v err=%v", ok, err)
	}
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
