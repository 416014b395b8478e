package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/config"
	fx "github.com/robotalks/multilink/pkg/framework"
	"github.com/robotalks/multilink/pkg/hw/sim"
	"github.com/robotalks/multilink/pkg/l0/cable"
	"github.com/robotalks/multilink/pkg/l1/bridge"
	"github.com/robotalks/multilink/pkg/l1/comm/mqtt"
	"github.com/robotalks/multilink/pkg/l1/env"
)

func init() {
	config.SetupFlags()
}

// echo sends every word a secondary receives from the primary back.
func echo(s *cable.Session, interval time.Duration) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				for s.HasMessage(0) {
					s.Send(s.ReadMessage(0))
				}
			}
		}
	})
}

func main() {
	flag.Parse()
	conf, err := config.FromFlags()
	if err != nil {
		log.Fatalln(err)
	}

	link := sim.NewCable()
	clock := sim.NewClock(link)
	clock.Resolution = conf.Sim.Resolution()
	sessions := make([]*cable.Session, 0, conf.Sim.Consoles)
	for i := 0; i < conf.Sim.Consoles; i++ {
		con := link.NewConsole(fmt.Sprintf("p%d", i))
		if _, err := link.Plug(con); err != nil {
			log.Fatalln(err)
		}
		s, err := cable.New(con, con, conf.Session.CableConfig())
		if err != nil {
			log.Fatalln(err)
		}
		s.Register(con.IRQ)
		s.Activate()
		sessions = append(sessions, s)
	}

	b := bridge.New(sessions[0], nil)
	b.PollInterval = conf.Bridge.PollInterval()
	if conf.Bridge.MQTTURL != "" {
		clientID := conf.Bridge.ClientID
		if clientID == "" {
			clientID = env.ClientID("bridge")
		}
		opts, prefix, err := mqtt.ClientOptionsFromURL(conf.Bridge.MQTTURL, clientID)
		if err != nil {
			log.Fatalln(err)
		}
		opts.SetWill(prefix+bridge.TopicStatus, string(bridge.OfflineStatus()), 0, true)
		broker := mqtt.New(opts, prefix)
		if err := broker.Connect(); err != nil {
			log.Fatalf("connect %s failed: %v", conf.Bridge.MQTTURL, err)
		}
		defer broker.Close()
		b.Transport = &bridge.BrokerTransport{Broker: broker}
		glog.Infof("bridge: connected to %s as %s", conf.Bridge.MQTTURL, clientID)
	}

	runner := fx.NewRunner().WithFailFast(true).HandleSignals()
	runner.Go(fx.NamedRun("clock", clock), b)
	if conf.Bridge.WebsocketAddr != "" {
		runner.Go(bridge.ServeWebsocket(conf.Bridge.WebsocketAddr, b))
	}
	for n, s := range sessions[1:] {
		runner.Go(fx.NamedRun(fmt.Sprintf("echo-p%d", n+1), echo(s, b.PollInterval)))
	}
	if err := runner.Wait(); err != nil {
		glog.Error(err)
	}
	for _, s := range sessions {
		s.Deactivate()
	}
	glog.Flush()
}
