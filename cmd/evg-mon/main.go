// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evg-mon probes a fleet of EVG cards on a fixed interval and
// raises mail alerts for cards that stop answering.
package main // import "github.com/go-daq/evg230/cmd/evg-mon"

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mail "gopkg.in/gomail.v2"

	"github.com/go-daq/evg230/conddb"
	"github.com/go-daq/evg230/evg"
)

func main() {
	var (
		dbname = flag.String("db", "", "conddb database with the device registrations")
		name   = flag.String("name", "evg0", "device name (without -db)")
		addr   = flag.String("addr", "", "IPv4 address of the card's register gateway (without -db)")
		port   = flag.Int("port", 2000, "UDP port of the card's register gateway (without -db)")
		rfreq  = flag.Uint("rf", 125000000, "reference frequency (Hz, without -db)")
		probe  = flag.Duration("freq", 30*time.Second, "probing interval")
	)

	flag.Parse()

	log.SetPrefix("evg-mon: ")
	log.SetFlags(0)

	cfgs, err := registrations(*dbname, *name, *addr, *port, uint32(*rfreq))
	if err != nil {
		log.Fatalf("%+v", err)
	}

	err = run(cfgs, *probe)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func registrations(dbname, name, addr string, port int, freq uint32) ([]conddb.DeviceConfig, error) {
	if dbname == "" {
		if addr == "" {
			return nil, fmt.Errorf("missing -db or -addr flag")
		}
		return []conddb.DeviceConfig{
			{Name: name, IP: addr, Port: port, Frequency: freq},
		}, nil
	}

	db, err := conddb.Open(dbname)
	if err != nil {
		return nil, fmt.Errorf("could not open config db %q: %w", dbname, err)
	}
	defer db.Close()

	cfgs, err := db.DeviceConfigs(context.Background())
	if err != nil {
		return nil, fmt.Errorf("could not fetch device configs from %q: %w", dbname, err)
	}
	return cfgs, nil
}

type monitor struct {
	devs   []*evg.Device
	probe  time.Duration
	alerts map[string]int // failed probes per device since its last answer
}

func run(cfgs []conddb.DeviceConfig, probe time.Duration) error {
	reg := evg.NewRegistry()
	for _, cfg := range cfgs {
		err := reg.Configure(cfg.Name, cfg.IP, cfg.Port, cfg.Frequency)
		if err != nil {
			return fmt.Errorf("could not configure device %v: %w", cfg, err)
		}
	}
	err := reg.Init(context.Background())
	if err != nil {
		return fmt.Errorf("could not initialize devices: %w", err)
	}
	defer reg.Shutdown()

	mon := &monitor{
		devs:   reg.Devices(),
		probe:  probe,
		alerts: make(map[string]int),
	}

	log.Printf("monitoring %d devices every %v...", len(mon.devs), probe)
	tick := time.NewTicker(probe)
	defer tick.Stop()
	for range tick.C {
		mon.scan()
	}
	return nil
}

func (mon *monitor) scan() {
	for _, dev := range mon.devs {
		fw, err := dev.FirmwareVersion()
		if err != nil {
			mon.alert(dev, err)
			continue
		}
		if mon.alerts[dev.Name()] > 0 {
			log.Printf("device %v answers again (firmware 0x%04X)", dev, fw)
		}
		mon.alerts[dev.Name()] = 0
	}
}

func (mon *monitor) alert(dev *evg.Device, err error) {
	log.Printf("device %v did not answer: %+v", dev, err)
	mon.alerts[dev.Name()]++

	const maxAlerts = 5
	if mon.alerts[dev.Name()] < maxAlerts {
		mon.alertMail(dev, err)
	}
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func (mon *monitor) alertMail(dev *evg.Device, derr error) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[evg-mon] device alert: %v", dev))
	msg.SetBody("text/plain", fmt.Sprintf("device: %v\nerror: %+v\nfreq: %v",
		dev, derr, mon.probe,
	))

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(msg)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
