package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbragin/hoymiles-dtu/internal/config"
	"github.com/vbragin/hoymiles-dtu/internal/engine"
	"github.com/vbragin/hoymiles-dtu/internal/radio"
	"github.com/vbragin/hoymiles-dtu/internal/sink"
)

var (
	configPath  = flag.String("c", "ahoy.conf", "configuration file location")
	enableMQTT  = flag.Bool("m", false, "enable message-bus publishing")
	debug       = flag.Bool("d", false, "enable verbose debug logging")
	interval    = flag.Int("i", 30, "minimum per-inverter poll interval, in seconds")
	logFilePath = flag.String("f", "", "append decoded records to this file")
	endTime     = flag.String("e", "", "terminate cleanly at this wall-clock minute (HH:MM)")
	simulated   = flag.Bool("sim", false, "run against the bundled simulated transceiver")
)

func main() {
	flag.Parse()

	cfgFile, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("dtu: load config: %v", err)
	}

	var sinks []sink.Sink
	if *logFilePath != "" {
		fa, err := sink.NewFileAppender(*logFilePath)
		if err != nil {
			log.Fatalf("dtu: %v", err)
		}
		defer fa.Close()
		sinks = append(sinks, fa)
	}
	if *enableMQTT {
		m, err := sink.NewMQTT(sink.MQTTConfig{
			Host:     cfgFile.MQTTHost,
			Port:     cfgFile.MQTTPort,
			User:     cfgFile.MQTTUser,
			Password: cfgFile.MQTTPassword,
		})
		if err != nil {
			log.Fatalf("dtu: %v", err)
		}
		defer m.Close()
		sinks = append(sinks, m)
	}

	var tc radio.Transceiver
	if *simulated {
		log.Println("dtu: running against the simulated transceiver (-sim)")
		tc = radio.NewSimulated()
	} else {
		log.Fatalf("dtu: no hardware transceiver driver is built into this binary; run with -sim")
	}

	eng, err := engine.New(tc, engine.Config{
		DTUSerial:          cfgFile.DTUSerial,
		InverterSerials:    cfgFile.InverterList,
		MinRefreshInterval: time.Duration(*interval) * time.Second,
		EndTime:            *endTime,
		Debug:              *debug,
	}, sinks)
	if err != nil {
		log.Fatalf("dtu: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("dtu: shutting down...")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil {
		log.Fatalf("dtu: engine: %v", err)
	}
}
