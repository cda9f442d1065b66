// Package proxy implements the topic-based message router: one
// listener accepts publisher connections, a second accepts subscriber
// connections, and inbound messages are copied to every subscriber
// whose registered topic prefix matches. Grounded on
// internal/broker/service.go's accept-loop-plus-fanout shape, adapted
// from a JSON-RPC hub to the plain three-frame wire protocol this
// module uses (SPEC_FULL.md §4.9).
package proxy

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/JeffersonLab/dift-sub001/internal/framing"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
	"github.com/JeffersonLab/dift-sub001/public/actor"
)

// Config holds the Proxy server's listen settings.
type Config struct {
	Host       string
	PubPort    int
	SubPort    int
	ControlPort int
	Debug      bool
}

// Service is the Proxy server: a splice between a publisher-facing
// listener and a subscriber-facing listener, plus a liveness/control
// responder.
//
// Forwarding is indexed rather than scanned: each subscribed prefix is
// hashed with xxhash into byPrefixHash, and an inbound publish is
// matched by hashing the topic's own ancestor prefixes (at most the
// number of ':'-separated segments it has) and probing that map,
// instead of comparing the topic against every subscriber's every
// prefix.
type Service struct {
	cfg Config
	ctx *actor.Context

	mu           sync.RWMutex
	subscribers  map[*subscriberConn]struct{}
	byPrefixHash map[uint64]map[*subscriberConn]struct{}
}

// NewService constructs a Proxy server. ctx, if nil, gets its own
// independent Context so the server's I/O tunables are isolated from
// any user actor sharing the process (spec.md §4.3).
func NewService(cfg Config, ctx *actor.Context) *Service {
	if ctx == nil {
		ctx = actor.NewContext(0, 0)
	}
	return &Service{
		cfg:          cfg,
		ctx:          ctx,
		subscribers:  make(map[*subscriberConn]struct{}),
		byPrefixHash: make(map[uint64]map[*subscriberConn]struct{}),
	}
}

// ancestorPrefixes returns topic itself plus every ':'-bounded prefix of
// it, e.g. "a:b:c" yields ["a", "a:b", "a:b:c"]. A subscriber's prefix
// matches topic iff it appears in this list (the same rule as
// actor.Topic.IsParent, applied in the topic's own direction so the
// match becomes a set membership test instead of a scan).
func ancestorPrefixes(topic string) []string {
	parts := strings.Split(topic, ":")
	prefixes := make([]string, len(parts))
	cur := parts[0]
	prefixes[0] = cur
	for i := 1; i < len(parts); i++ {
		cur = cur + ":" + parts[i]
		prefixes[i] = cur
	}
	return prefixes
}

type subscriberConn struct {
	conn net.Conn

	writeMu sync.Mutex

	prefixMu sync.RWMutex
	prefixes map[string]struct{}
}

func newSubscriberConn(conn net.Conn) *subscriberConn {
	return &subscriberConn{conn: conn, prefixes: make(map[string]struct{})}
}

func (s *subscriberConn) addPrefix(p string) {
	s.prefixMu.Lock()
	defer s.prefixMu.Unlock()
	s.prefixes[p] = struct{}{}
}

func (s *subscriberConn) removePrefix(p string) {
	s.prefixMu.Lock()
	defer s.prefixMu.Unlock()
	delete(s.prefixes, p)
}

func (s *subscriberConn) hasPrefix(p string) bool {
	s.prefixMu.RLock()
	defer s.prefixMu.RUnlock()
	_, ok := s.prefixes[p]
	return ok
}

func (s *subscriberConn) prefixSnapshot() []string {
	s.prefixMu.RLock()
	defer s.prefixMu.RUnlock()
	out := make([]string, 0, len(s.prefixes))
	for p := range s.prefixes {
		out = append(out, p)
	}
	return out
}

func (s *subscriberConn) write(frames [][]byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return framing.WriteMessage(s.conn, frames)
}

// Start runs the three listeners until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	pubLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.PubPort))
	if err != nil {
		return fmt.Errorf("proxy: listen pub: %w", err)
	}
	subLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.SubPort))
	if err != nil {
		pubLn.Close()
		return fmt.Errorf("proxy: listen sub: %w", err)
	}
	controlLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.ControlPort))
	if err != nil {
		pubLn.Close()
		subLn.Close()
		return fmt.Errorf("proxy: listen control: %w", err)
	}

	pubLn = s.ctx.LimitListener(pubLn)
	subLn = s.ctx.LimitListener(subLn)
	controlLn = s.ctx.LimitListener(controlLn)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.acceptLoop(ctx, pubLn, s.handlePublisher) }()
	go func() { defer wg.Done(); s.acceptLoop(ctx, subLn, s.handleSubscriber) }()
	go func() { defer wg.Done(); s.acceptLoop(ctx, controlLn, s.handleControl) }()

	<-ctx.Done()
	pubLn.Close()
	subLn.Close()
	controlLn.Close()
	wg.Wait()
	return nil
}

func (s *Service) acceptLoop(ctx context.Context, ln net.Listener, handle func(net.Conn)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("proxy: accept: %v", err)
				return
			}
		}
		go handle(conn)
	}
}

func (s *Service) handlePublisher(conn net.Conn) {
	defer conn.Close()
	for {
		frames, err := framing.ReadMessage(conn)
		if err != nil {
			if s.cfg.Debug {
				log.Printf("proxy: publisher %s disconnected: %v", conn.RemoteAddr(), err)
			}
			return
		}
		if len(frames) != 3 {
			log.Printf("proxy: publisher %s: expected 3 frames, got %d", conn.RemoteAddr(), len(frames))
			continue
		}
		s.forward(frames)
	}
}

func (s *Service) forward(frames [][]byte) {
	topic := string(frames[0])

	matched := make(map[*subscriberConn]struct{})
	s.mu.RLock()
	for _, prefix := range ancestorPrefixes(topic) {
		h := xxhash.Sum64String(prefix)
		for sub := range s.byPrefixHash[h] {
			if sub.hasPrefix(prefix) {
				matched[sub] = struct{}{}
			}
		}
	}
	s.mu.RUnlock()

	for sub := range matched {
		if err := sub.write(frames); err != nil {
			log.Printf("proxy: forward to %s: %v", sub.conn.RemoteAddr(), err)
		}
	}
}

// indexPrefix records that sub is subscribed to prefix, adding it to
// the prefix-hash bucket forward() probes.
func (s *Service) indexPrefix(sub *subscriberConn, prefix string) {
	sub.addPrefix(prefix)
	h := xxhash.Sum64String(prefix)
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.byPrefixHash[h]
	if bucket == nil {
		bucket = make(map[*subscriberConn]struct{})
		s.byPrefixHash[h] = bucket
	}
	bucket[sub] = struct{}{}
}

// unindexPrefix reverses indexPrefix.
func (s *Service) unindexPrefix(sub *subscriberConn, prefix string) {
	sub.removePrefix(prefix)
	h := xxhash.Sum64String(prefix)
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.byPrefixHash[h]
	delete(bucket, sub)
	if len(bucket) == 0 {
		delete(s.byPrefixHash, h)
	}
}

func (s *Service) handleSubscriber(conn net.Conn) {
	sub := newSubscriberConn(conn)
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		for _, prefix := range sub.prefixSnapshot() {
			s.unindexPrefix(sub, prefix)
		}
		s.mu.Lock()
		delete(s.subscribers, sub)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		frames, err := framing.ReadMessage(conn)
		if err != nil {
			if s.cfg.Debug {
				log.Printf("proxy: subscriber %s disconnected: %v", conn.RemoteAddr(), err)
			}
			return
		}
		if len(frames) != 3 || string(frames[0]) != wire.ControlTopic {
			continue
		}
		var meta wire.Meta
		if err := wire.Decode(frames[1], &meta); err != nil {
			log.Printf("proxy: subscriber %s: bad control meta: %v", conn.RemoteAddr(), err)
			continue
		}
		prefix := string(frames[2])
		switch meta.Action {
		case wire.ControlCommandSub:
			s.indexPrefix(sub, prefix)
		case wire.ControlCommandUnsub:
			s.unindexPrefix(sub, prefix)
		default:
			log.Printf("proxy: subscriber %s: unknown control action %q", conn.RemoteAddr(), meta.Action)
		}
	}
}

// handleControl answers liveness pings on the control port: any frame
// it receives is echoed back with a "rep" action, letting a caller
// confirm the Proxy is alive without joining the pub/sub fan-out
// (spec.md §6's control topic, sub-command rep).
func (s *Service) handleControl(conn net.Conn) {
	defer conn.Close()
	for {
		frames, err := framing.ReadMessage(conn)
		if err != nil {
			return
		}
		meta := wire.NewMeta(actor.MimeString)
		meta.Action = wire.ControlCommandRep
		metaBytes, err := wire.Encode(meta)
		if err != nil {
			log.Printf("proxy: control: encode reply meta: %v", err)
			return
		}
		payload := []byte("alive")
		if len(frames) >= 1 {
			payload = frames[0]
		}
		reply := [][]byte{[]byte(wire.ControlTopic), metaBytes, payload}
		if err := framing.WriteMessage(conn, reply); err != nil {
			log.Printf("proxy: control: write reply: %v", err)
			return
		}
	}
}
