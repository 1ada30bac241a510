package event

import "testing"

func TestOnReceivesOnlyMatchingEvents(t *testing.T) {
	e := NewEmitter()

	var got []string
	e.On(FileCreated, func(ev Event) {
		got = append(got, ev.(FileCreatedEvent).Path)
	})

	e.Emit(FileCreatedEvent{Path: "/home/project/a.txt"})
	e.Emit(FileDeletedEvent{Path: "/home/project/b.txt"})

	if len(got) != 1 || got[0] != "/home/project/a.txt" {
		t.Errorf("got %v, want only the created path", got)
	}
}

func TestOnAnyReceivesAllEvents(t *testing.T) {
	e := NewEmitter()

	var names []string
	e.OnAny(func(ev Event) {
		names = append(names, ev.EventName())
	})

	e.Emit(FileCreatedEvent{Path: "/a"})
	e.Emit(FolderDeletedEvent{Path: "/b"})
	e.Emit(CheckpointResetEvent{})

	want := []string{FileCreated, FolderDeleted, CheckpointReset}
	if len(names) != len(want) {
		t.Fatalf("received %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	e := NewEmitter()

	count := 0
	off := e.On(FileChanged, func(Event) { count++ })
	offAny := e.OnAny(func(Event) { count++ })

	e.Emit(FileChangedEvent{})
	off()
	offAny()
	e.Emit(FileChangedEvent{})

	if count != 2 {
		t.Errorf("count = %d, want 2 (one per listener before unsubscribe)", count)
	}

	// Unsubscribing twice is harmless.
	off()
	offAny()
}

func TestUnsubscribeRemovesOnlyOwnListener(t *testing.T) {
	e := NewEmitter()

	var a, b int
	offA := e.On(FileChanged, func(Event) { a++ })
	e.On(FileChanged, func(Event) { b++ })

	offA()
	e.Emit(FileChangedEvent{})

	if a != 0 || b != 1 {
		t.Errorf("a = %d, b = %d; unsubscribe removed the wrong listener", a, b)
	}
}
