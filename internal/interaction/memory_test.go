package interaction_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmerrifield20/honeypot/internal/interaction"
)

func TestMemoryLog_AppendPreservesOrder(t *testing.T) {
	l := interaction.NewMemoryLog()
	for i := 0; i < 5; i++ {
		if err := l.Append(&interaction.Record{ID: fmt.Sprintf("r%d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got := l.List()
	if len(got) != 5 || l.Len() != 5 {
		t.Fatalf("len = %d / Len() = %d, want 5", len(got), l.Len())
	}
	for i, r := range got {
		if want := fmt.Sprintf("r%d", i); r.ID != want {
			t.Errorf("record %d ID = %q, want %q", i, r.ID, want)
		}
	}
}

func TestMemoryLog_AppendNil(t *testing.T) {
	l := interaction.NewMemoryLog()
	if err := l.Append(nil); !errors.Is(err, interaction.ErrNilRecord) {
		t.Errorf("Append(nil) = %v, want ErrNilRecord", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d after nil append", l.Len())
	}
}

func TestMemoryLog_DuplicatesKept(t *testing.T) {
	l := interaction.NewMemoryLog()
	r := &interaction.Record{ID: "same", Text: "otp"}
	_ = l.Append(r)
	_ = l.Append(r)
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestMemoryLog_AppendCopies(t *testing.T) {
	l := interaction.NewMemoryLog()
	r := &interaction.Record{ID: "a", Triggers: []string{"otp"}}
	_ = l.Append(r)

	r.ID = "changed"
	r.Triggers[0] = "changed"

	got := l.List()[0]
	if got.ID != "a" || got.Triggers[0] != "otp" {
		t.Errorf("stored record was mutated: %+v", got)
	}
}

func TestMemoryLog_ListReturnsCopy(t *testing.T) {
	l := interaction.NewMemoryLog()
	_ = l.Append(&interaction.Record{ID: "a"})

	list := l.List()
	list[0].ID = "changed"

	if l.List()[0].ID != "a" {
		t.Error("mutating List() result changed the log")
	}
}

func TestMemoryLog_ObserversNotified(t *testing.T) {
	l := interaction.NewMemoryLog()
	var seen []string
	l.Subscribe(func(r interaction.Record) { seen = append(seen, r.ID) })

	_ = l.Append(&interaction.Record{ID: "x"})
	_ = l.Append(&interaction.Record{ID: "y"})

	if len(seen) != 2 || seen[0] != "x" || seen[1] != "y" {
		t.Errorf("observer saw %v, want [x y]", seen)
	}
}

func TestMemoryLog_ConcurrentAppend(t *testing.T) {
	l := interaction.NewMemoryLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Append(&interaction.Record{ID: fmt.Sprintf("r%d", i)})
			_ = l.List()
		}(i)
	}
	wg.Wait()

	if l.Len() != 50 {
		t.Errorf("Len() = %d, want 50", l.Len())
	}
}

func TestMemoryLog_ObserverOrderMatchesList(t *testing.T) {
	l := interaction.NewMemoryLog()
	var (
		mu   sync.Mutex
		seen []string
	)
	l.Subscribe(func(r interaction.Record) {
		mu.Lock()
		seen = append(seen, r.ID)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Append(&interaction.Record{ID: fmt.Sprintf("r%d", i)})
		}(i)
	}
	wg.Wait()

	list := l.List()
	if len(seen) != len(list) {
		t.Fatalf("observer saw %d records, log has %d", len(seen), len(list))
	}
	for i := range list {
		if seen[i] != list[i].ID {
			t.Fatalf("position %d: observer saw %s, log has %s", i, seen[i], list[i].ID)
		}
	}
}
