// Package sse streams the player view to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// StateStream is the stream ID clients pass as ?stream=.
const StateStream = "state"

// Publisher publishes a View on StateStream whenever the rendered state changes.
// Store notifications only wake the publishing goroutine, so a slow subscriber
// never stalls the controller.
type Publisher struct {
	server     *sse.Server
	controller *player.Controller
	send       func(data []byte)

	mu   sync.Mutex
	last *player.PlaybackState

	wake chan struct{}
	done chan struct{}

	unsubscribe func()
}

// NewPublisher creates a publisher following controller's store.
func NewPublisher(controller *player.Controller) *Publisher {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(StateStream)

	return newPublisher(controller, server, func(data []byte) {
		server.Publish(StateStream, &sse.Event{Data: data})
	})
}

func newPublisher(controller *player.Controller, server *sse.Server, send func([]byte)) *Publisher {
	p := &Publisher{
		server:     server,
		controller: controller,
		send:       send,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go p.run()
	p.unsubscribe = controller.Store().Subscribe(p.onChange)
	return p
}

// run publishes the latest view after each wake-up until Close.
func (p *Publisher) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
			p.Publish()
		}
	}
}

func (p *Publisher) onChange(st player.PlaybackState) {
	p.mu.Lock()
	if p.last != nil && player.RendersSame(*p.last, st) {
		p.mu.Unlock()
		return
	}
	p.last = &st
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Publish sends the current view to every subscriber.
func (p *Publisher) Publish() {
	data, err := json.Marshal(p.controller.View())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode view for SSE")
		return
	}
	p.send(data)
}

// ServeHTTP serves the event stream.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.server.ServeHTTP(w, r)
}

// Close stops following the store and disconnects subscribers.
func (p *Publisher) Close() {
	p.unsubscribe()
	close(p.done)
	if p.server != nil {
		p.server.Close()
	}
}
