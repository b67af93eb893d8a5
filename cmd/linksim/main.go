package main

import (
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/device"
	"github.com/robotalks/halflink/pkg/env"
	fx "github.com/robotalks/halflink/pkg/framework"
)

var (
	telemetry = time.Second
)

func init() {
	env.SetupFlags()
	flag.DurationVar(&telemetry, "telemetry", telemetry, "Throttle report period, 0 to disable.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	sim := device.NewSimulator(telemetry)
	runner := fx.NewRunner().HandleSignals()
	conn, t, err := conf.Open(runner.Context, env.Device, sim, sim)
	if err != nil {
		log.Fatalln(err)
	}
	sim.Sender = conn
	if closer, ok := t.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	glog.Infof("device %s on %s", conf.Device, conf.URL)
	if err = runner.Go(conn, fx.NamedRun("telemetry", sim)).Wait(); err != nil {
		log.Fatalln(err)
	}
}
