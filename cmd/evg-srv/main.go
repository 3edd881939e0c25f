// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evg-srv starts a TDAQ server controlling a fleet of EVG
// cards. Device registrations come from the conddb database named as
// first argument, or from repeated name=ip:port:freq arguments.
package main // import "github.com/go-daq/evg230/cmd/evg-srv"

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-daq/evg230/conddb"
	"github.com/go-daq/evg230/evg"
)

func main() {
	cmd := flags.New()

	var (
		dbname string
		cfgs   []conddb.DeviceConfig
	)
	for _, arg := range cmd.Args {
		if !strings.Contains(arg, "=") {
			dbname = arg
			continue
		}
		cfg, err := parseDevice(arg)
		if err != nil {
			log.Fatalf("could not parse device %q: %+v", arg, err)
		}
		cfgs = append(cfgs, cfg)
	}

	dev := evg.NewServer(dbname, cfgs, evg.WithReset(true))

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

// parseDevice parses a name=ip:port:freq device registration.
func parseDevice(arg string) (conddb.DeviceConfig, error) {
	var cfg conddb.DeviceConfig

	i := strings.Index(arg, "=")
	cfg.Name = arg[:i]

	toks := strings.Split(arg[i+1:], ":")
	if len(toks) != 3 {
		return cfg, fmt.Errorf("invalid device registration %q (want name=ip:port:freq)", arg)
	}
	cfg.IP = toks[0]

	port, err := strconv.Atoi(toks[1])
	if err != nil {
		return cfg, fmt.Errorf("invalid port %q: %w", toks[1], err)
	}
	cfg.Port = port

	freq, err := strconv.ParseUint(toks[2], 10, 32)
	if err != nil {
		return cfg, fmt.Errorf("invalid frequency %q: %w", toks[2], err)
	}
	cfg.Frequency = uint32(freq)

	return cfg, nil
}
