package service

import (
	"sync"

	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/metrics"
)

// auditStream fans request log records out to live subscribers. Slow
// subscribers miss records rather than block the mirror goroutine.
type auditStream struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *model.LogRecord
}

func newAuditStream() *auditStream {
	return &auditStream{subs: make(map[int]chan *model.LogRecord)}
}

func (s *auditStream) subscribe(buffer int) (<-chan *model.LogRecord, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *model.LogRecord, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (s *auditStream) publish(record *model.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- record:
		default:
			metrics.RequestLogDropped.WithLabelValues("stream").Inc()
		}
	}
}

func (s *auditStream) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
