package versions

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
)

func newVersion(owner string) Version {
	return Version{Kind: KindCoverLetter, OwnerID: owner, Payload: json.RawMessage(`{"text":"x"}`)}
}

func activeCount(t *testing.T, s Store, kind Kind, owner string) int {
	t.Helper()
	list, err := s.List(context.Background(), kind, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n := 0
	for _, v := range list {
		if v.IsActive {
			n++
		}
	}
	return n
}

func TestMemoryStoreConcurrentCreatesAreSequential(t *testing.T) {
	s := NewMemoryStore()
	const n = 10

	var wg sync.WaitGroup
	numbers := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.CreateNext(context.Background(), newVersion("app-1"), ActivateAlways)
			if err != nil {
				t.Errorf("CreateNext: %v", err)
				return
			}
			numbers <- v.Number
		}()
	}
	wg.Wait()
	close(numbers)

	var got []int
	for num := range numbers {
		got = append(got, num)
	}
	sort.Ints(got)
	if len(got) != n {
		t.Fatalf("expected %d versions, got %d", n, len(got))
	}
	for i, num := range got {
		if num != i+1 {
			t.Fatalf("expected numbers 1..%d, got %v", n, got)
		}
	}
	if c := activeCount(t, s, KindCoverLetter, "app-1"); c != 1 {
		t.Fatalf("expected exactly one active version, got %d", c)
	}
}

func TestMemoryStoreNumbersArePerOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	b, _ := s.CreateNext(ctx, newVersion("app-2"), ActivateAlways)
	if a.Number != 1 || b.Number != 1 {
		t.Fatalf("expected independent numbering, got %d and %d", a.Number, b.Number)
	}
	r := Version{Kind: KindResume, OwnerID: "app-1", Payload: json.RawMessage(`{}`)}
	rv, _ := s.CreateNext(ctx, r, ActivateNever)
	if rv.Number != 1 || rv.IsActive {
		t.Fatalf("expected inactive resume version 1, got %+v", rv)
	}
}

func TestMemoryStoreActivateIfFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateIfFirst)
	second, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateIfFirst)
	if !first.IsActive || second.IsActive {
		t.Fatalf("expected only the first version active: %+v %+v", first, second)
	}
}

func TestMemoryStoreRepeatedActivateKeepsOneActive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		v, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
		ids = append(ids, v.ID)
	}
	for _, id := range []string{ids[0], ids[2], ids[1], ids[1]} {
		if _, err := s.Activate(ctx, KindCoverLetter, "app-1", id); err != nil {
			t.Fatalf("Activate: %v", err)
		}
		if c := activeCount(t, s, KindCoverLetter, "app-1"); c != 1 {
			t.Fatalf("expected one active after activating %s, got %d", id, c)
		}
	}
	active, err := s.GetActive(ctx, KindCoverLetter, "app-1")
	if err != nil || active.ID != ids[1] {
		t.Fatalf("expected %s active, got %+v err=%v", ids[1], active, err)
	}
}

func TestMemoryStoreActivateForeignOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	if _, err := s.Activate(ctx, KindCoverLetter, "app-2", v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteActivePromotesHighest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v1, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	v2, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	v3, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)

	// v1 active, then delete it: v3 is the highest remaining.
	if _, err := s.Activate(ctx, KindCoverLetter, "app-1", v1.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	promoted, err := s.Delete(ctx, KindCoverLetter, "app-1", v1.ID, true)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if promoted == nil || promoted.ID != v3.ID || !promoted.IsActive {
		t.Fatalf("expected v3 promoted, got %+v", promoted)
	}

	// Deleting an inactive version leaves the active one alone.
	promoted, err = s.Delete(ctx, KindCoverLetter, "app-1", v2.ID, true)
	if err != nil || promoted != nil {
		t.Fatalf("expected no promotion, got %+v err=%v", promoted, err)
	}
	if active, _ := s.GetActive(ctx, KindCoverLetter, "app-1"); active.ID != v3.ID {
		t.Fatalf("expected v3 still active, got %+v", active)
	}

	// Deleting the last version leaves nothing active.
	promoted, err = s.Delete(ctx, KindCoverLetter, "app-1", v3.ID, true)
	if err != nil || promoted != nil {
		t.Fatalf("expected no promotion, got %+v err=%v", promoted, err)
	}
	if _, err := s.GetActive(ctx, KindCoverLetter, "app-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active version, got %v", err)
	}
}

func TestMemoryStoreNumbersNotReusedAfterDeleteOfLower(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v1, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	_, _ = s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	if _, err := s.Delete(ctx, KindCoverLetter, "app-1", v1.ID, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	v3, _ := s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	if v3.Number != 3 {
		t.Fatalf("expected number 3, got %d", v3.Number)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = s.CreateNext(ctx, newVersion("app-1"), ActivateAlways)
	}
	list, err := s.List(ctx, KindCoverLetter, "app-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Number != 3 || list[2].Number != 1 {
		t.Fatalf("unexpected order %+v", list)
	}
}
