package mqtt

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Broker wraps a MQTT client. All topics are relative to TopicPrefix.
type Broker struct {
	Client      paho.Client
	TopicPrefix string
	OnConnect   func(*Broker)

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a subscribed topic.
type Subscription struct {
	broker  *Broker
	topic   string
	handler Handler
}

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The path of the URL is the topic prefix, query client-id overrides
// clientID.
func ClientOptionsFromURL(serverURL, clientID string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid broker URL: %w", err)
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		clientID = id
	}
	if clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// New creates a Broker. Options are completed with the connection handlers.
func New(options *paho.ClientOptions, topicPrefix string) *Broker {
	b := &Broker{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	options.SetOnConnectHandler(b.onConnect)
	options.SetConnectionLostHandler(b.onConnectionLost)
	b.Client = paho.NewClient(options)
	return b
}

// Connect connects the client and waits for the result.
func (b *Broker) Connect() error {
	token := b.Client.Connect()
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (b *Broker) Close() error {
	b.Client.Disconnect(250)
	return nil
}

// Sub subscribes a topic, which may contain wildcards.
func (b *Broker) Sub(topic string, handler Handler) (*Subscription, error) {
	sub := &Subscription{broker: b, topic: topic, handler: handler}
	b.subsLock.Lock()
	first := len(b.subs[topic]) == 0
	b.subs[topic] = append(b.subs[topic], sub)
	b.subsLock.Unlock()

	if first && b.Client.IsConnected() {
		glog.V(2).Infof("SUB %q", b.TopicPrefix+topic)
		token := b.Client.Subscribe(b.TopicPrefix+topic, 0, b.dispatch)
		token.Wait()
		if err := token.Error(); err != nil {
			sub.Close()
			return nil, err
		}
	}
	return sub, nil
}

// Pub publishes to a topic.
func (b *Broker) Pub(topic string, payload []byte, retain bool) error {
	token := b.Client.Publish(b.TopicPrefix+topic, 0, retain, payload)
	token.Wait()
	return token.Error()
}

func (b *Broker) resubscribe() {
	filters := make(map[string]byte)
	b.subsLock.RLock()
	for topic := range b.subs {
		filters[b.TopicPrefix+topic] = 0
	}
	b.subsLock.RUnlock()
	if len(filters) == 0 {
		return
	}
	if glog.V(2) {
		for key := range filters {
			glog.Infof("SUB %q", key)
		}
	}
	b.Client.SubscribeMultiple(filters, b.dispatch)
}

func (b *Broker) onConnect(paho.Client) {
	glog.Info("mqtt: connected")
	b.resubscribe()
	if h := b.OnConnect; h != nil {
		h(b)
	}
}

func (b *Broker) onConnectionLost(_ paho.Client, err error) {
	glog.Warningf("mqtt: connection lost: %v", err)
}

func (b *Broker) dispatch(_ paho.Client, msg paho.Message) {
	b.Dispatch(msg.Topic(), msg.Payload())
}

// Dispatch routes a message with a full topic to the matching handlers.
func (b *Broker) Dispatch(fullTopic string, payload []byte) {
	if !strings.HasPrefix(fullTopic, b.TopicPrefix) {
		return
	}
	topic := fullTopic[len(b.TopicPrefix):]
	glog.V(3).Infof("RCV %q", topic)
	var handlers []Handler
	b.subsLock.RLock()
	for pattern, subs := range b.subs {
		if MatchTopic(topic, pattern) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	b.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close unsubscribes the handler.
func (s *Subscription) Close() error {
	b := s.broker
	b.subsLock.Lock()
	subs := b.subs[s.topic]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(b.subs, s.topic)
	} else {
		b.subs[s.topic] = subs
	}
	b.subsLock.Unlock()
	if last && b.Client.IsConnected() {
		glog.V(2).Infof("UNSUB %q", s.topic)
		token := b.Client.Unsubscribe(b.TopicPrefix + s.topic)
		token.Wait()
		return token.Error()
	}
	return nil
}
