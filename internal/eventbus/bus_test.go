package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestOnRejectsInvalidRegistration(t *testing.T) {
	bus := New(nil)

	if _, err := bus.On("", func(any) {}); !errors.Is(err, ErrEmptyEventName) {
		t.Fatalf("expected ErrEmptyEventName, got %v", err)
	}
	if _, err := bus.On("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
	if bus.Count("x") != 0 {
		t.Fatalf("nothing should be registered")
	}
}

func TestFireDispatchesInRegistrationOrder(t *testing.T) {
	bus := New(nil)
	var calls []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		if _, err := bus.On("evt", func(data any) {
			calls = append(calls, name+":"+data.(string))
		}); err != nil {
			t.Fatalf("on: %v", err)
		}
	}

	if err := bus.Fire("evt", "payload"); err != nil {
		t.Fatalf("fire: %v", err)
	}
	want := []string{"first:payload", "second:payload", "third:payload"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestFireWithoutSubscribersIsNoop(t *testing.T) {
	bus := New(nil)
	if err := bus.Fire("nobody", nil); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if err := bus.Fire("", nil); !errors.Is(err, ErrEmptyEventName) {
		t.Fatalf("expected ErrEmptyEventName, got %v", err)
	}
}

func TestFirePassesNilData(t *testing.T) {
	bus := New(nil)
	called := false
	bus.On(OnUserResetMap, func(data any) {
		called = true
		if data != nil {
			t.Fatalf("expected nil data, got %v", data)
		}
	})
	bus.Fire(OnUserResetMap, nil)
	if !called {
		t.Fatalf("handler not called")
	}
}

func TestOffRemovesOnlyThatSubscription(t *testing.T) {
	bus := New(nil)
	var calls []int

	first, _ := bus.On("evt", func(any) { calls = append(calls, 1) })
	bus.On("evt", func(any) { calls = append(calls, 2) })

	if !bus.Off("evt", first) {
		t.Fatalf("expected first subscription to be removed")
	}
	if bus.Off("evt", first) {
		t.Fatalf("second removal should report false")
	}
	if bus.Off("other", first) {
		t.Fatalf("removal under another name should report false")
	}

	bus.Fire("evt", nil)
	if !reflect.DeepEqual(calls, []int{2}) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRegistrationDuringDispatchAppliesToNextFire(t *testing.T) {
	bus := New(nil)
	count := 0
	var self Subscription
	self, _ = bus.On("evt", func(any) {
		count++
		bus.Off("evt", self)
		bus.On("evt", func(any) { count += 10 })
	})

	bus.Fire("evt", nil)
	if count != 1 {
		t.Fatalf("expected only the first handler on first fire, got %d", count)
	}
	bus.Fire("evt", nil)
	if count != 11 {
		t.Fatalf("expected the added handler on second fire, got %d", count)
	}
}

func TestConcurrentUse(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := bus.On("evt", func(any) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			if err != nil {
				t.Errorf("on: %v", err)
				return
			}
			bus.Fire("evt", nil)
			bus.Off("evt", sub)
		}()
	}
	wg.Wait()

	if bus.Count("evt") != 0 {
		t.Fatalf("expected all subscriptions removed, got %d", bus.Count("evt"))
	}
	if total < 20 {
		t.Fatalf("expected at least one call per goroutine, got %d", total)
	}
}
