package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/JeffersonLab/dift-sub001/internal/proxy"
	"github.com/JeffersonLab/dift-sub001/internal/registrar"
	"github.com/JeffersonLab/dift-sub001/public/actor"
)

// startTestServers boots a Proxy and a Registrar on fixed, test-only
// ports and returns their addresses; shutdown is registered with
// t.Cleanup. Ports are
// chosen high enough to be unlikely to collide with a developer's
// running services.
func startTestServers(t *testing.T) (actor.ProxyAddress, actor.RegAddress) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	proxyCfg := proxy.Config{Host: "127.0.0.1", PubPort: 19771, SubPort: 19772, ControlPort: 19773}
	proxySvc := proxy.NewService(proxyCfg, actor.NewContext(0, 64))

	regCfg := registrar.Config{Host: "127.0.0.1", Port: 19888}
	regSvc := registrar.NewService(regCfg, actor.NewContext(0, 64))

	proxyDone := make(chan error, 1)
	regDone := make(chan error, 1)
	go func() { proxyDone <- proxySvc.Start(ctx) }()
	go func() { regDone <- regSvc.Start(ctx) }()

	// Give the listeners a moment to bind before tests start dialing.
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-proxyDone
		<-regDone
	})

	proxyAddr, err := actor.NewProxyAddress(proxyCfg.Host, proxyCfg.PubPort)
	if err != nil {
		t.Fatalf("NewProxyAddress: %v", err)
	}
	regAddr, err := actor.NewRegAddress(regCfg.Host, regCfg.Port)
	if err != nil {
		t.Fatalf("NewRegAddress: %v", err)
	}
	return proxyAddr, regAddr
}

func TestPublishSubscribeEndToEnd(t *testing.T) {
	proxyAddr, regAddr := startTestServers(t)

	publisher, err := actor.NewActor("publisher", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer publisher.Close()

	subscriber, err := actor.NewActor("subscriber", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer subscriber.Close()

	topic := actor.RawTopic("test:chat")

	subConn, err := subscriber.Connect()
	if err != nil {
		t.Fatalf("subscriber.Connect: %v", err)
	}
	received := make(chan actor.Message, 1)
	sub, err := subscriber.Subscribe(topic, subConn, func(m actor.Message) {
		received <- m
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscriber.Unsubscribe(sub)

	time.Sleep(100 * time.Millisecond) // let the subscription prefix propagate

	pubConn, err := publisher.Connect()
	if err != nil {
		t.Fatalf("publisher.Connect: %v", err)
	}
	defer pubConn.Release()

	msg, err := actor.MakeMessage(topic, "hello")
	if err != nil {
		t.Fatalf("MakeMessage: %v", err)
	}
	if err := publisher.Publish(pubConn, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		text, err := actor.ParseMessage[string](got)
		if err != nil {
			t.Fatalf("ParseMessage: %v", err)
		}
		if text != "hello" {
			t.Fatalf("got %q, want %q", text, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestSyncPublish(t *testing.T) {
	proxyAddr, regAddr := startTestServers(t)

	client, err := actor.NewActor("client", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer client.Close()

	server, err := actor.NewActor("server", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer server.Close()

	topic := actor.RawTopic("svc:echo")

	serverConn, err := server.Connect()
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	echo, err := server.Subscribe(topic, serverConn, func(m actor.Message) {
		resp, err := actor.MakeResponse(m)
		if err != nil {
			return
		}
		replyConn, err := server.Connect()
		if err != nil {
			return
		}
		defer replyConn.Release()
		server.Publish(replyConn, resp)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer server.Unsubscribe(echo)

	time.Sleep(100 * time.Millisecond)

	clientConn, err := client.Connect()
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	defer clientConn.Release()

	req, err := actor.MakeMessage(topic, "ping")
	if err != nil {
		t.Fatalf("MakeMessage: %v", err)
	}

	reply, err := client.SyncPublish(clientConn, req, 2*time.Second)
	if err != nil {
		t.Fatalf("SyncPublish: %v", err)
	}
	text, err := actor.ParseMessage[string](reply)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if text != "ping" {
		t.Fatalf("got %q, want %q", text, "ping")
	}
}

func TestSyncPublishTimesOutWithNoSubscriber(t *testing.T) {
	proxyAddr, regAddr := startTestServers(t)

	client, err := actor.NewActor("lonely", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer client.Close()

	conn, err := client.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Release()

	msg, err := actor.MakeMessage(actor.RawTopic("svc:nobody"), "ping")
	if err != nil {
		t.Fatalf("MakeMessage: %v", err)
	}

	_, err = client.SyncPublish(conn, msg, 200*time.Millisecond)
	if !actor.IsKind(err, actor.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestRegisterAndDiscover(t *testing.T) {
	proxyAddr, regAddr := startTestServers(t)

	a, err := actor.NewActor("registrar-client", proxyAddr, regAddr, nil, false)
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	defer a.Close()

	topic, _ := actor.BuildSubject("weather", "temperature")
	if err := a.RegisterPublisher(topic); err != nil {
		t.Fatalf("RegisterPublisher: %v", err)
	}

	domain, _ := actor.BuildDomain("weather")
	regs, err := a.DiscoverPublishers(domain)
	if err != nil {
		t.Fatalf("DiscoverPublishers: %v", err)
	}
	if len(regs) != 1 || regs[0].Name != "registrar-client" {
		t.Fatalf("unexpected discovery result: %+v", regs)
	}

	if err := a.DeregisterPublisher(topic); err != nil {
		t.Fatalf("DeregisterPublisher: %v", err)
	}
	regs, err = a.DiscoverPublishers(domain)
	if err != nil {
		t.Fatalf("DiscoverPublishers: %v", err)
	}
	if len(regs) != 0 {
		t.Fatalf("expected empty discovery result after deregister, got %+v", regs)
	}
}
