package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/multilink/pkg/l1/bridge"
	"github.com/robotalks/multilink/pkg/l1/comm/mqtt"
	"github.com/robotalks/multilink/pkg/l1/env"
)

var (
	mqttURL = "mqtt://localhost:1883/multilink/"
)

func init() {
	if val := os.Getenv("MULTILINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL, env.ClientID("mon"))
	if err != nil {
		log.Fatalln(err)
	}
	broker := mqtt.New(opts, prefix)
	if err := broker.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer broker.Close()

	if _, err := broker.Sub(bridge.TopicStatus, func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	}); err != nil {
		log.Fatalln(err)
	}
	if _, err := broker.Sub("slot/+", func(topic string, payload []byte) {
		v, err := bridge.DecodeValue(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: 0x%04x", topic, v)
	}); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
