package pipeline

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/recordbind/errors"
)

// countingIter yields items and counts pulls and closes.
type countingIter struct {
	items  []string
	err    error
	pulled atomic.Int32
	closed atomic.Int32
}

func (c *countingIter) Next(_ context.Context) (string, bool, error) {
	i := int(c.pulled.Load())
	if i >= len(c.items) {
		if c.err != nil {
			return "", false, c.err
		}
		return "", false, nil
	}
	c.pulled.Add(1)
	return c.items[i], true, nil
}

func (c *countingIter) Close() error {
	c.closed.Add(1)
	return nil
}

func startSequential(t *testing.T, src Iterator[string], stage Stage[string, int], opts ...Option) *Sequential[string, int] {
	t.Helper()
	s, err := NewSequential(src, stage, append([]Option{quiet()}, opts...)...)
	if err != nil {
		t.Fatalf("NewSequential: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func drain(s *Sequential[string, int]) []int {
	var out []int
	for s.HasNext() {
		v, err := s.Next()
		if err != nil {
			break
		}
		out = append(out, v)
	}
	return out
}

func TestSequential_ConvertsInOrder(t *testing.T) {
	s := startSequential(t, SliceIterator([]string{"1", "2", "3"}), Stage[string, int]{Convert: atoi})
	got := drain(s)
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
	if _, err := s.Next(); !stderrors.Is(err, ErrNoMoreResults) {
		t.Errorf("expected ErrNoMoreResults, got %v", err)
	}
	if s.Err() != nil {
		t.Errorf("unexpected error %v", s.Err())
	}
}

func TestSequential_Collect(t *testing.T) {
	s := startSequential(t, SliceIterator([]string{"1", "x", "3"}), Stage[string, int]{Convert: atoi},
		WithThrowOnError(false))
	got := drain(s)
	if !intSliceEqual(got, []int{1, 3}) {
		t.Errorf("got %v, want [1 3]", got)
	}
	c := s.CapturedErrors()
	if len(c) != 1 || c[0].Line != 2 || c[0].Kind != errors.ErrCodeTypeConversion {
		t.Errorf("expected line 2 TYPE_CONVERSION, got %+v", c)
	}
}

func TestSequential_Throw(t *testing.T) {
	s := startSequential(t, SliceIterator([]string{"1", "x", "3"}), Stage[string, int]{Convert: atoi})
	v, err := s.Next()
	if err != nil || v != 1 {
		t.Fatalf("expected 1, got %d %v", v, err)
	}
	if s.HasNext() {
		t.Fatal("expected no more values after failure")
	}
	if errors.KindOf(s.Err()) != errors.ErrCodeTypeConversion {
		t.Errorf("expected TYPE_CONVERSION, got %v", s.Err())
	}
	if _, err := s.Next(); err != s.Err() {
		t.Errorf("Next should return the terminal error, got %v", err)
	}
}

func TestSequential_SourceFailure(t *testing.T) {
	src := &countingIter{items: []string{"1"}, err: stderrors.New("disk gone")}
	s := startSequential(t, src, Stage[string, int]{Convert: atoi}, WithThrowOnError(false))
	got := drain(s)
	if !intSliceEqual(got, []int{1}) {
		t.Errorf("got %v", got)
	}
	if errors.KindOf(s.Err()) != errors.ErrCodeSourceFailure {
		t.Errorf("expected SOURCE_FAILURE, got %v", s.Err())
	}
	if s.HasNext() {
		t.Error("HasNext must stay false after a source failure")
	}
}

func TestSequential_BoundedResidency(t *testing.T) {
	items := make([]string, 100)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}
	src := &countingIter{items: items}
	s := startSequential(t, src, Stage[string, int]{Convert: atoi})

	time.Sleep(20 * time.Millisecond)
	if n := src.pulled.Load(); n > 2 {
		t.Fatalf("expected at most 2 inputs pulled ahead, got %d", n)
	}
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := src.pulled.Load(); n > 3 {
		t.Fatalf("expected at most 3 inputs pulled after one Next, got %d", n)
	}
}

func TestSequential_FilterSkips(t *testing.T) {
	stage := Stage[string, int]{Convert: atoi, Filter: func(s string) bool { return s != "#" }}
	s := startSequential(t, SliceIterator([]string{"#", "#", "7", "#"}), stage)
	got := drain(s)
	if !intSliceEqual(got, []int{7}) {
		t.Errorf("got %v, want [7]", got)
	}
}

func TestSequential_Iter(t *testing.T) {
	s := startSequential(t, SliceIterator([]string{"4", "5"}), Stage[string, int]{Convert: atoi})
	got, err := Collect(context.Background(), From(s.Iter()))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{4, 5}) {
		t.Errorf("got %v", got)
	}
}

func TestSequential_CloseIsIdempotent(t *testing.T) {
	src := &countingIter{items: []string{"1", "2", "3"}}
	s := startSequential(t, src, Stage[string, int]{Convert: atoi})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if src.closed.Load() != 1 {
		t.Errorf("expected source closed once, got %d", src.closed.Load())
	}
	if s.State() != StateTerminated && s.State() != StateShuttingDown {
		t.Errorf("unexpected state %s", s.State())
	}
}

func TestSequential_Lifecycle(t *testing.T) {
	s, err := NewSequential(SliceIterator([]string{"1"}), Stage[string, int]{Convert: atoi}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(); !stderrors.Is(err, ErrNotPrepared) {
		t.Errorf("expected ErrNotPrepared, got %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Start(context.Background()); !stderrors.Is(err, ErrAlreadyPrepared) {
		t.Errorf("expected ErrAlreadyPrepared, got %v", err)
	}
	if _, err := NewSequential[string, int](SliceIterator([]string{}), Stage[string, int]{}); err == nil {
		t.Error("expected error without converter")
	}
}
