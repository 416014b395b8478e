// Package bridge relays the messages of a link session to MQTT and
// websocket clients, and their payloads back into the session.
//
// MQTT topics, relative to the broker prefix:
//
//	slot/<peer>  received words, protobuf UInt32Value
//	send         words to send, protobuf UInt32Value
//	status       session status, JSON, retained
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/l0/cable"
	"github.com/robotalks/multilink/pkg/l1/comm/mqtt"
)

// Topics.
const (
	TopicSend   = "send"
	TopicStatus = "status"
)

// DefaultPollInterval is the default period of draining the session.
const DefaultPollInterval = 10 * time.Millisecond

const sendRetries = 100

// SlotTopic returns the topic of words received from a peer.
func SlotTopic(peer int) string {
	return fmt.Sprintf("slot/%d", peer)
}

// Link is the session surface used by the bridge.
type Link interface {
	IsActive() bool
	State() cable.State
	PlayerCount() int
	CurrentPlayerID() int
	Send(uint16) bool
	HasMessage(peer int) bool
	ReadMessage(peer int) uint16
}

// Transport is a pub/sub transport with topics relative to a prefix.
type Transport interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string, handler func(topic string, payload []byte)) (io.Closer, error)
}

// BrokerTransport adapts mqtt.Broker to Transport.
type BrokerTransport struct {
	Broker *mqtt.Broker
}

// Publish implements Transport.
func (t *BrokerTransport) Publish(topic string, payload []byte, retain bool) error {
	return t.Broker.Pub(topic, payload, retain)
}

// Subscribe implements Transport.
func (t *BrokerTransport) Subscribe(topic string, handler func(string, []byte)) (io.Closer, error) {
	sub, err := t.Broker.Sub(topic, mqtt.Handler(handler))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Status is published on TopicStatus and to websocket clients.
type Status struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	PlayerID    int    `json:"player_id"`
}

// StateOffline is the status state published when the bridge stops.
const StateOffline = "offline"

// OfflineStatus returns the status payload of a stopped bridge, suitable
// as the MQTT will.
func OfflineStatus() []byte {
	payload, _ := json.Marshal(&Status{State: StateOffline})
	return payload
}

// Message is a word exchanged with websocket clients.
type Message struct {
	Peer  int    `json:"peer"`
	Value uint32 `json:"value"`
}

// Bridge relays a Link. Transport may be nil when only websocket clients
// are served.
type Bridge struct {
	Link         Link
	Transport    Transport
	PollInterval time.Duration

	lastStatus *Status
	clients    map[*wsClient]struct{}
	lock       sync.RWMutex
}

// New creates a Bridge.
func New(link Link, transport Transport) *Bridge {
	return &Bridge{
		Link:         link,
		Transport:    transport,
		PollInterval: DefaultPollInterval,
		clients:      make(map[*wsClient]struct{}),
	}
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "bridge"
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	if b.Transport != nil {
		sub, err := b.Transport.Subscribe(TopicSend, b.handleSend)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", TopicSend, err)
		}
		defer sub.Close()
		defer b.publishOffline()
	}
	interval := b.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Poll()
		}
	}
}

// Poll drains every peer queue, relays the words and publishes the status
// when it changed. It returns the number of words relayed.
func (b *Bridge) Poll() int {
	relayed := 0
	for peer := 0; peer < hw.MaxPlayers; peer++ {
		for b.Link.HasMessage(peer) {
			v := b.Link.ReadMessage(peer)
			if v == hw.NoData {
				break
			}
			b.relay(peer, v)
			relayed++
		}
	}
	status := b.status()
	if b.lastStatus == nil || *b.lastStatus != status {
		b.lastStatus = &status
		b.publishStatus(status)
	}
	return relayed
}

// Send queues a word on the link, retrying while the session is busy.
func (b *Bridge) Send(v uint16) bool {
	for i := 0; i < sendRetries; i++ {
		if b.Link.Send(v) {
			return true
		}
		if v == hw.NoData || v == hw.Disconnected || !b.Link.IsActive() {
			return false
		}
		runtime.Gosched()
	}
	return false
}

func (b *Bridge) status() Status {
	return Status{
		State:       b.Link.State().String(),
		PlayerCount: b.Link.PlayerCount(),
		PlayerID:    b.Link.CurrentPlayerID(),
	}
}

func (b *Bridge) relay(peer int, v uint16) {
	glog.V(2).Infof("bridge: peer %d -> 0x%04x", peer, v)
	if b.Transport != nil {
		payload, err := EncodeValue(v)
		if err == nil {
			err = b.Transport.Publish(SlotTopic(peer), payload, false)
		}
		if err != nil {
			glog.Warningf("bridge: publish %s failed: %v", SlotTopic(peer), err)
		}
	}
	b.broadcast(&Message{Peer: peer, Value: uint32(v)})
}

func (b *Bridge) publishStatus(status Status) {
	glog.V(2).Infof("bridge: status %+v", status)
	if b.Transport != nil {
		payload, err := json.Marshal(&status)
		if err == nil {
			err = b.Transport.Publish(TopicStatus, payload, true)
		}
		if err != nil {
			glog.Warningf("bridge: publish %s failed: %v", TopicStatus, err)
		}
	}
	b.broadcast(&status)
}

func (b *Bridge) publishOffline() {
	if err := b.Transport.Publish(TopicStatus, OfflineStatus(), true); err != nil {
		glog.Warningf("bridge: publish %s failed: %v", TopicStatus, err)
	}
}

func (b *Bridge) handleSend(_ string, payload []byte) {
	v, err := DecodeValue(payload)
	if err != nil {
		glog.Warningf("bridge: drop payload on %s: %v", TopicSend, err)
		return
	}
	if !b.Send(v) {
		glog.Warningf("bridge: link busy, dropped 0x%04x", v)
	}
}
