/*
 * Copyright (c) 2024. Brian Walton -- All Rights Reserved
 *
 * This file is part of the riban heating controller project.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/riban-bw/heating-controller/internal"
	"github.com/riban-bw/heating-controller/internal/config"
	"github.com/riban-bw/heating-controller/internal/db"
	"github.com/riban-bw/heating-controller/internal/gpio"
	"github.com/riban-bw/heating-controller/internal/logger"
	"github.com/riban-bw/heating-controller/internal/onewire"
	"github.com/riban-bw/heating-controller/internal/rtc"
	"github.com/riban-bw/heating-controller/internal/store"
)

// Build version, overridden with flag during build.
var version = "devel"

func main() {
	logger.L().Warnf("riban heating controller, version: %+v", version)
	defer logger.Close()
	cfg := config.Get()

	region, err := store.OpenFileRegion(cfg.StoreFile, store.Size)
	if err != nil {
		logger.L().Fatal(err)
	}
	defer region.Close()

	st := store.New(region)
	if err := st.Load(); err != nil {
		logger.L().Fatal(err)
	}
	logger.L().Infof("%d sensors configured", len(st.Sensors))
	logger.L().Infof("%d events configured", len(st.Events))

	outputs := buildOutputs(cfg.GPIO)
	defer outputs.Close()

	var tlog *db.Log
	if cfg.DBFile != "" {
		if tlog, err = db.Open(cfg.DBFile); err != nil {
			logger.L().Fatal(err)
		}
		defer tlog.Close()
	}

	c := internal.NewController(cfg, st, buildBus(cfg.OneWire), rtc.NewSystemClock(), outputs, tlog)
	c.EnableMQTT()
	go serveSerial(c, cfg.SerialDevice)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.Run(ctx)
}

func buildBus(cfg *config.OneWireConfig) onewire.Bus {
	if cfg.Mode == config.OneWireSim {
		b := onewire.NewSimBus()
		for _, s := range cfg.Sensors {
			uid, err := onewire.ParseUID(s.UID)
			if err != nil {
				logger.L().Warnf("skipping simulated sensor: %v", err)
				continue
			}
			b.SetCelsius(uid, s.Celsius)
		}
		return b
	}
	return onewire.NewW1Bus("")
}

func buildOutputs(cfg *config.GPIOConfig) gpio.Outputs {
	if cfg == nil {
		logger.L().Warn("no gpio configured, actuators are fake")
		return gpio.NewFakeOutputs()
	}
	chip := cfg.Chip
	if chip == "" {
		chip = gpio.DefaultChip
	}
	boiler, pump := gpio.DefaultBoilerLine, gpio.DefaultPumpLine
	if cfg.BoilerLine != nil {
		boiler = *cfg.BoilerLine
	}
	if cfg.PumpLine != nil {
		pump = *cfg.PumpLine
	}
	out, err := gpio.NewChipOutputs(chip, boiler, pump)
	if err != nil {
		logger.L().Fatal(err)
	}
	return out
}

func serveSerial(c *internal.Controller, device string) {
	var r io.Reader = os.Stdin
	var w io.Writer = os.Stdout
	if device != "" {
		f, err := os.OpenFile(device, os.O_RDWR, 0)
		if err != nil {
			logger.L().Fatal(err)
		}
		r, w = f, f
	}
	c.ServeLines(r, w)
}
