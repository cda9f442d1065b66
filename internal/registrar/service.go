// Package registrar implements the directory service: actors advertise
// that they publish or subscribe to a topic, and look up who else does.
// Grounded on internal/broker/service.go's lock-mutate-and-fanout
// pattern, adapted from a pub/sub hub to an in-memory, ordered,
// request/reply directory (SPEC_FULL.md §4.10). Non-goals (spec.md)
// exclude persistence, so the directory lives entirely in memory and is
// lost on restart.
package registrar

import (
	"context"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"

	"github.com/JeffersonLab/dift-sub001/internal/framing"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
	"github.com/JeffersonLab/dift-sub001/public/actor"
)

// Config holds the Registrar server's listen settings.
type Config struct {
	Host  string
	Port  int
	Debug bool
}

// Service is the Registrar server.
type Service struct {
	cfg Config
	ctx *actor.Context

	mu          sync.Mutex
	publishers  []wire.Registration
	subscribers []wire.Registration
}

// NewService constructs a Registrar server.
func NewService(cfg Config, ctx *actor.Context) *Service {
	if ctx == nil {
		ctx = actor.NewContext(0, 0)
	}
	return &Service{cfg: cfg, ctx: ctx}
}

// Start listens and serves requests until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("registrar: listen: %w", err)
	}
	ln = s.ctx.LimitListener(ln)

	var wg sync.WaitGroup
	done := make(chan struct{})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-done:
					return
				default:
					log.Printf("registrar: accept: %v", err)
					return
				}
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleConn(conn)
			}()
		}
	}()

	<-ctx.Done()
	close(done)
	ln.Close()
	wg.Wait()
	return nil
}

func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		frames, err := framing.ReadMessage(conn)
		if err != nil {
			if s.cfg.Debug {
				log.Printf("registrar: %s disconnected: %v", conn.RemoteAddr(), err)
			}
			return
		}
		if len(frames) != 3 {
			s.writeError(conn, fmt.Sprintf("expected 3 frames, got %d", len(frames)))
			continue
		}
		sender, command, payload := string(frames[0]), string(frames[1]), frames[2]
		reply, err := s.dispatch(sender, command, payload)
		if err != nil {
			s.writeError(conn, err.Error())
			continue
		}
		if err := s.writeSuccess(conn, reply); err != nil {
			log.Printf("registrar: write reply to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Service) writeError(conn net.Conn, msg string) {
	if err := framing.WriteMessage(conn, [][]byte{[]byte(msg)}); err != nil {
		log.Printf("registrar: write error reply: %v", err)
	}
}

func (s *Service) writeSuccess(conn net.Conn, payloadFrames [][]byte) error {
	frames := append([][]byte{[]byte(actor.StatusSuccess)}, payloadFrames...)
	return framing.WriteMessage(conn, frames)
}

func (s *Service) dispatch(sender, command string, payload []byte) ([][]byte, error) {
	switch command {
	case actor.CommandRegisterPublisher:
		return nil, s.register(&s.publishers, payload)
	case actor.CommandRegisterSubscriber:
		return nil, s.register(&s.subscribers, payload)
	case actor.CommandRemovePublisherRegistration:
		return nil, s.remove(&s.publishers, payload)
	case actor.CommandRemoveSubscriberRegistration:
		return nil, s.remove(&s.subscribers, payload)
	case actor.CommandRemoveAllRegistration:
		s.removeAllForHost(string(payload), sender)
		return nil, nil
	case actor.CommandFindPublisher:
		return s.find(s.publishers, string(payload)), nil
	case actor.CommandFindSubscriber:
		return s.find(s.subscribers, string(payload)), nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func (s *Service) register(set *[]wire.Registration, payload []byte) error {
	var reg wire.Registration
	if err := wire.Decode(payload, &reg); err != nil {
		return fmt.Errorf("decode registration: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range *set {
		if existing.Equal(reg) {
			return nil
		}
	}
	*set = append(*set, reg)
	sort.Slice(*set, func(i, j int) bool { return (*set)[i].Less((*set)[j]) })
	return nil
}

func (s *Service) remove(set *[]wire.Registration, payload []byte) error {
	var reg wire.Registration
	if err := wire.Decode(payload, &reg); err != nil {
		return fmt.Errorf("decode registration: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := (*set)[:0]
	for _, existing := range *set {
		if !existing.Equal(reg) {
			filtered = append(filtered, existing)
		}
	}
	*set = filtered
	return nil
}

// removeAllForHost drops every registration (publisher or subscriber)
// whose Host matches host and whose Name matches sender. This
// implementation's resolution of spec.md's open question on
// removeAllRegistration's blast radius: scoped to the caller's own
// entries at that host, not to every actor registered from it
// (DESIGN.md).
func (s *Service) removeAllForHost(host, sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = filterByHost(s.publishers, host, sender)
	s.subscribers = filterByHost(s.subscribers, host, sender)
}

func filterByHost(set []wire.Registration, host, name string) []wire.Registration {
	filtered := set[:0]
	for _, reg := range set {
		if reg.Host != host || reg.Name != name {
			filtered = append(filtered, reg)
		}
	}
	return filtered
}

// find returns every registration in set whose topic lies at or below
// queryTopic in the domain:subject:type hierarchy, already ordered
// because set is kept sorted on every mutation.
func (s *Service) find(set []wire.Registration, queryTopic string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var frames [][]byte
	for _, reg := range set {
		if !isPrefixMatch(queryTopic, reg.Topic()) {
			continue
		}
		b, err := wire.Encode(reg)
		if err != nil {
			log.Printf("registrar: encode registration: %v", err)
			continue
		}
		frames = append(frames, b)
	}
	return frames
}

func isPrefixMatch(prefix, topic string) bool {
	if prefix == topic {
		return true
	}
	return len(topic) > len(prefix) && topic[:len(prefix)] == prefix && topic[len(prefix)] == ':'
}
