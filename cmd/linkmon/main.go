package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/halflink/pkg/frame"
	"github.com/robotalks/halflink/pkg/link/mqtt"
	"github.com/robotalks/halflink/pkg/payload"
)

var (
	mqttURL = "mqtt://localhost:1883/halflink/"
)

func init() {
	if val := os.Getenv("HALFLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.ConnectAndWait(mqtt.DefaultConnectTimeout); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	q.Sub("#", mqtt.Handler(func(topic string, data []byte) {
		f, err := frame.Decode(data)
		if err != nil {
			log.Printf("%s: bad frame: %v", topic, err)
			return
		}
		if f.Kind == frame.KindBinary {
			log.Printf("%s: binary %s", topic, payload.Describe(f.Payload))
			return
		}
		log.Printf("%s: %s", topic, f)
	}))
	<-(chan struct{})(nil)
}
