package store

import "time"

// Event tells subscribers that a committed transaction touched a record.
type Event struct {
	Entity Entity    `json:"entity"`
	Action Action    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// Subscribe registers a listener for committed changes. Events are dropped
// for a subscriber whose buffer is full. The returned func unsubscribes and
// closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var cancelled bool
	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if cancelled {
			return
		}
		cancelled = true
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Store) publish(changes []Change, at time.Time) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, c := range changes {
		ev := Event{Entity: c.Entity, Action: c.Action, ID: c.ID, At: at}
		for _, ch := range s.subs {
			select {
			case ch <- ev:
			default:
				if s.observer != nil {
					s.observer.ObserveDroppedEvent()
				}
			}
		}
	}
}
