package bridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/multilink/pkg/framework"
)

// WebsocketPath is where the endpoint is mounted by ServeWebsocket.
const WebsocketPath = "/link"

type wsClient struct {
	conn *websocket.Conn
	lock sync.Mutex
}

func (c *wsClient) send(v interface{}) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return websocket.JSON.Send(c.conn, v)
}

// WebsocketHandler streams Status and Message frames to each client and
// sends the value of every Message frame received.
func (b *Bridge) WebsocketHandler() http.Handler {
	return websocket.Handler(b.serveWebsocket)
}

// Clients returns the number of connected websocket clients.
func (b *Bridge) Clients() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.clients)
}

func (b *Bridge) serveWebsocket(conn *websocket.Conn) {
	client := &wsClient{conn: conn}
	b.lock.Lock()
	b.clients[client] = struct{}{}
	b.lock.Unlock()
	glog.V(2).Infof("bridge: websocket %s connected", conn.Request().RemoteAddr)
	defer func() {
		b.lock.Lock()
		delete(b.clients, client)
		b.lock.Unlock()
		glog.V(2).Infof("bridge: websocket %s disconnected", conn.Request().RemoteAddr)
	}()

	for {
		var msg Message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
		v, err := checkValue(msg.Value)
		if err != nil {
			glog.Warningf("bridge: websocket drop: %v", err)
			continue
		}
		b.Send(v)
	}
}

func (b *Bridge) broadcast(v interface{}) {
	b.lock.RLock()
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.lock.RUnlock()
	for _, c := range clients {
		if err := c.send(v); err != nil {
			glog.V(2).Infof("bridge: websocket send failed: %v", err)
		}
	}
}

// ServeWebsocket returns a Runnable serving the websocket endpoint on addr.
func ServeWebsocket(addr string, b *Bridge) fx.Runnable {
	return fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle(WebsocketPath, b.WebsocketHandler())
		srv := &http.Server{Addr: addr, Handler: mux}
		glog.Infof("bridge: websocket on %s%s", addr, WebsocketPath)
		err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}))
}
