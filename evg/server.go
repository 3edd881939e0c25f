// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"github.com/go-daq/tdaq"
	"golang.org/x/xerrors"

	"github.com/go-daq/evg230/conddb"
)

// Server exposes a fleet of EVG devices as a TDAQ process.
//
// /config loads the device registrations (from the conddb database
// when a name was given, from the static list otherwise), /init
// connects the cards (and resets them when the server was created with
// WithReset(true)), /start enables them, /stop disables them, /quit
// drops the fleet.
type Server struct {
	dbname string
	cfgs   []conddb.DeviceConfig
	opts   []Option

	reg *Registry
}

// NewServer creates a server for the given device registrations.
// With a non-empty dbname, /config fetches the registrations from the
// conddb database of that name instead.
func NewServer(dbname string, cfgs []conddb.DeviceConfig, opts ...Option) *Server {
	return &Server{
		dbname: dbname,
		cfgs:   cfgs,
		opts:   opts,
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	cfgs := srv.cfgs
	if srv.dbname != "" {
		db, err := conddb.Open(srv.dbname)
		if err != nil {
			ctx.Msg.Errorf("could not open config db %q: %+v", srv.dbname, err)
			return xerrors.Errorf("could not open config db %q: %w", srv.dbname, err)
		}
		defer db.Close()

		cfgs, err = db.DeviceConfigs(ctx.Ctx)
		if err != nil {
			ctx.Msg.Errorf("could not fetch device configs from %q: %+v", srv.dbname, err)
			return xerrors.Errorf("could not fetch device configs from %q: %w", srv.dbname, err)
		}
	}

	reg := NewRegistry(srv.opts...)
	for _, cfg := range cfgs {
		err := reg.Configure(cfg.Name, cfg.IP, cfg.Port, cfg.Frequency)
		if err != nil {
			ctx.Msg.Errorf("could not configure device %v: %+v", cfg, err)
			return xerrors.Errorf("could not configure device %v: %w", cfg, err)
		}
		ctx.Msg.Infof("configured device %v", cfg)
	}
	srv.reg = reg

	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.reg == nil {
		return xerrors.Errorf("no devices configured")
	}

	err := srv.reg.Init(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("could not initialize devices: %+v", err)
		return xerrors.Errorf("could not initialize devices: %w", err)
	}
	for _, dev := range srv.reg.Devices() {
		fw, err := dev.FirmwareVersion()
		if err != nil {
			ctx.Msg.Errorf("could not read firmware version of %q: %+v", dev.Name(), err)
			return xerrors.Errorf("could not read firmware version of %q: %w", dev.Name(), err)
		}
		ctx.Msg.Infof("device %v: firmware 0x%04x", dev, fw)
	}
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if srv.reg == nil {
		return nil
	}

	err := srv.reg.Shutdown()
	srv.reg = nil
	if err != nil {
		ctx.Msg.Errorf("could not reset devices: %+v", err)
		return xerrors.Errorf("could not reset devices: %w", err)
	}
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.reg == nil {
		return xerrors.Errorf("no devices configured")
	}

	for _, dev := range srv.reg.Devices() {
		err := dev.Enable(true)
		if err != nil {
			ctx.Msg.Errorf("could not enable device %q: %+v", dev.Name(), err)
			return xerrors.Errorf("could not enable device %q: %w", dev.Name(), err)
		}
	}
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if srv.reg == nil {
		return nil
	}

	for _, dev := range srv.reg.Devices() {
		err := dev.Enable(false)
		if err != nil {
			ctx.Msg.Errorf("could not disable device %q: %+v", dev.Name(), err)
			return xerrors.Errorf("could not disable device %q: %w", dev.Name(), err)
		}
	}
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	if srv.reg == nil {
		return nil
	}

	err := srv.reg.Shutdown()
	srv.reg = nil
	if err != nil {
		ctx.Msg.Errorf("could not shut down devices: %+v", err)
		return xerrors.Errorf("could not shut down devices: %w", err)
	}
	return nil
}
