package client

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"reversi/communication"
	"reversi/telemetry"

	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultQueueSize = 256
)

// HTTPSink posts telemetry to a log endpoint from a single background
// goroutine, so callers never wait on the network. Forms are sent in the
// order they were emitted. The first transport error or non-200 answer
// disables it for the rest of the process.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	latch    telemetry.Latch

	mu     sync.RWMutex
	closed bool
	queue  chan url.Values
	done   chan struct{}
}

// NewHTTPSink initializes and returns a sink posting to endpoint. Close must
// be called to flush pending forms.
func NewHTTPSink(endpoint string) *HTTPSink {
	s := &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		queue:    make(chan url.Values, defaultQueueSize),
		done:     make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *HTTPSink) Enabled() bool {
	return s.latch.Enabled()
}

// Close stops accepting forms and waits until the queued ones are sent or
// the sink is disabled.
func (s *HTTPSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *HTTPSink) enqueue(form url.Values) {
	if !s.latch.Enabled() {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- form:
	default:
		log.Warn().Str("logtype", form.Get(communication.FieldLogType)).Msg("telemetry queue full, dropping form")
	}
}

func (s *HTTPSink) drain() {
	defer close(s.done)
	for form := range s.queue {
		if s.latch.Enabled() {
			s.post(form)
		}
	}
}

func (s *HTTPSink) post(form url.Values) {
	resp, err := s.client.PostForm(s.endpoint, form)
	if err != nil {
		s.latch.Trip(s.endpoint, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if err != nil {
			s.latch.Trip(s.endpoint, fmt.Errorf("status %d, reading body: %w", resp.StatusCode, err))
			return
		}
		s.latch.Trip(s.endpoint, fmt.Errorf("status %d: %s", resp.StatusCode, body))
		return
	}
	log.Debug().Str("logtype", form.Get(communication.FieldLogType)).Msg("telemetry sent")
}

func (s *HTTPSink) Reset() {
	s.enqueue(communication.NewLogForm())
}

func (s *HTTPSink) Birth(generation int, born []telemetry.Birth) {
	s.enqueue(communication.BirthForm(generation, born))
}

func (s *HTTPSink) Death(generation int, dead []telemetry.GenomeRef) {
	s.enqueue(communication.DeathForm(generation, dead))
}

func (s *HTTPSink) FitnessReport(generation int, fitness []telemetry.Fitness) {
	s.enqueue(communication.FitnessForm(generation, fitness))
}
