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

package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/riban-bw/heating-controller/internal/config"
	"github.com/riban-bw/heating-controller/internal/db"
	"github.com/riban-bw/heating-controller/internal/gpio"
	"github.com/riban-bw/heating-controller/internal/logger"
	"github.com/riban-bw/heating-controller/internal/onewire"
	"github.com/riban-bw/heating-controller/internal/rtc"
	"github.com/riban-bw/heating-controller/internal/safe_mqtt"
	"github.com/riban-bw/heating-controller/internal/store"
)

const (
	mqttQoS        = 1
	lineChanBuffer = 16
	// startupDelay triggers the first tick promptly; the tick re-arms
	// itself onto the minute boundary.
	startupDelay = time.Second
)

type commandLine struct {
	data  []byte
	reply io.Writer
}

// Controller owns every record and runs the control loop. All state
// mutations happen on the Run goroutine; command sources only feed
// the line channel, so commands arriving during a tick wait for it.
type Controller struct {
	cfg     *config.Config
	store   *store.Store
	sched   *Scheduler
	bus     onewire.Bus
	clock   rtc.Clock
	outputs gpio.Outputs
	tlog    *db.Log              // optional
	mqtt    safe_mqtt.MqttClient // optional
	lines   chan commandLine
	boiler  bool
	pump    bool
}

func NewController(
	cfg *config.Config, st *store.Store, bus onewire.Bus, clock rtc.Clock,
	outputs gpio.Outputs, tlog *db.Log,
) *Controller {
	return &Controller{
		cfg:     cfg,
		store:   st,
		sched:   NewScheduler(st),
		bus:     bus,
		clock:   clock,
		outputs: outputs,
		tlog:    tlog,
		lines:   make(chan commandLine, lineChanBuffer),
	}
}

// Scheduler exposes the schedule engine to tests.
func (c *Controller) Scheduler() *Scheduler { return c.sched }

// Submit queues one command line for the control loop. Replies are
// written to reply when the command runs; a nil reply drops them.
func (c *Controller) Submit(line []byte, reply io.Writer) {
	if reply == nil {
		reply = io.Discard
	}
	data := make([]byte, len(line))
	copy(data, line)
	c.lines <- commandLine{data: data, reply: reply}
}

// ServeLines consumes a command channel until it is exhausted.
func (c *Controller) ServeLines(r io.Reader, reply io.Writer) {
	if err := ReadLines(r, func(line []byte) { c.Submit(line, reply) }); err != nil {
		logger.L().Errorf("command channel closed: %v", err)
	}
}

// EnableMQTT starts the status publisher and command bridge when the
// configuration asks for it.
func (c *Controller) EnableMQTT() {
	mc := c.cfg.MQTTConfig
	if mc == nil || !mc.Enabled {
		return
	}
	c.mqtt = safe_mqtt.InitMQTTClient(mc.URL, "heatctl-"+uuid.New().String())
	reply := &mqttReplyWriter{client: c.mqtt, topic: mc.TopicPrefix + "/reply"}
	c.mqtt.SafeSubscribe(mc.TopicPrefix+"/cmd", mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
		for _, line := range bytes.FieldsFunc(msg.Payload(), isLineBreak) {
			if len(line) < maxLineLen {
				c.Submit(line, reply)
			}
		}
	})
}

func isLineBreak(r rune) bool { return r == '\n' || r == '\r' }

// mqttReplyWriter publishes command replies to the reply topic.
type mqttReplyWriter struct {
	client safe_mqtt.MqttClient
	topic  string
}

func (w *mqttReplyWriter) Write(p []byte) (int, error) {
	payload := make([]byte, len(p))
	copy(payload, p)
	w.client.SafePublish(w.topic, mqttQoS, false, payload)
	return len(p), nil
}

// Run executes the control loop until ctx is cancelled: a tick per
// minute boundary, command lines whenever they arrive. Run to
// completion, no preemption.
func (c *Controller) Run(ctx context.Context) {
	if now, ok := c.readNowOK(); ok {
		c.sched.RecomputeNext(now)
	}

	timer := time.NewTimer(startupDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.L().Info("controller stopping")
			if err := c.outputs.Set(false, false); err != nil {
				logger.L().Error(err)
			}
			return
		case <-timer.C:
			c.tick()
			timer.Reset(c.untilNextMinute())
		case cmd := <-c.lines:
			c.ExecLine(cmd.data, cmd.reply)
		}
	}
}

// tick is the once-per-minute pass: clock, due events, sensor refresh,
// hysteresis, actuators, telemetry.
func (c *Controller) tick() {
	reading, err := c.clock.Read()
	if err != nil {
		logger.L().Errorf("read clock: %v", err)
		return
	}
	now := timestampOf(reading)

	if c.sched.IsDue(now) {
		c.sched.ProcessEvents(now)
	}

	for i := range c.store.Sensors {
		sn := &c.store.Sensors[i]
		v, err := c.bus.ReadCelsiusHundredths(onewire.UID(sn.UID))
		if err != nil {
			// value not applied, previous zone state holds
			logger.L().Warnf("sensor read skipped: %v", err)
			continue
		}
		sn.Value = v
		if int(sn.Zone) < store.MaxZones {
			UpdateZone(&c.store.Zones[sn.Zone], v)
		}
	}

	boiler, pump := Aggregate(&c.store.Zones)
	if boiler != c.boiler || pump != c.pump {
		logger.L().Infof("demand changed: boiler=%v pump=%v", boiler, pump)
		if c.tlog != nil {
			if err := c.tlog.RecordTransition(time.Now(), boiler, pump); err != nil {
				logger.L().Warn(err)
			}
		}
	}
	c.boiler, c.pump = boiler, pump

	if err := c.outputs.Set(boiler, pump); err != nil {
		// recomputed and rewritten next minute
		logger.L().Errorf("set outputs: %v", err)
	}

	c.recordReadings()
	c.publishState()
}

func (c *Controller) recordReadings() {
	if c.tlog == nil {
		return
	}
	at := time.Now()
	for _, sn := range c.store.Sensors {
		if int(sn.Zone) >= store.MaxZones {
			continue
		}
		z := c.store.Zones[sn.Zone]
		err := c.tlog.RecordReading(at, onewire.UID(sn.UID).String(), int(sn.Zone), sn.Value, int(z.Setpoint), z.On)
		if err != nil {
			logger.L().Warn(err)
			return
		}
	}
}

type zoneState struct {
	Zone       int     `json:"zone"`
	Setpoint   float64 `json:"setpoint"`
	Hysteresis float64 `json:"hysteresis"`
	Space      bool    `json:"space"`
	Demand     bool    `json:"demand"`
}

func (c *Controller) publishState() {
	if c.mqtt == nil {
		return
	}
	prefix := c.cfg.MQTTConfig.TopicPrefix
	for i, z := range c.store.Zones {
		payload, err := json.Marshal(zoneState{
			Zone:       i,
			Setpoint:   float64(z.Setpoint) / 10,
			Hysteresis: float64(z.Hyst) / 10,
			Space:      z.Space,
			Demand:     z.On,
		})
		if err != nil {
			logger.L().Error(err)
			continue
		}
		c.mqtt.SafePublish(zoneTopic(prefix, i), mqttQoS, true, payload)
	}
	c.mqtt.SafePublish(prefix+"/boiler", mqttQoS, true, onOff(c.boiler))
	c.mqtt.SafePublish(prefix+"/pump", mqttQoS, true, onOff(c.pump))
}

func zoneTopic(prefix string, zone int) string {
	return fmt.Sprintf("%s/zone/%d/state", prefix, zone)
}

func onOff(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// readNow samples the clock as a schedule timestamp. On a clock fault
// the zero timestamp matches no event.
func (c *Controller) readNow() Timestamp {
	now, _ := c.readNowOK()
	return now
}

func (c *Controller) readNowOK() (Timestamp, bool) {
	reading, err := c.clock.Read()
	if err != nil {
		logger.L().Errorf("read clock: %v", err)
		return Timestamp{}, false
	}
	return timestampOf(reading), true
}

func timestampOf(r rtc.Reading) Timestamp {
	ts := Timestamp{Time: uint16(r.Hour*60 + r.Minute)}
	if r.Dow >= 1 && r.Dow <= 7 {
		ts.Day = 1 << (r.Dow - 1)
	}
	return ts
}

// untilNextMinute re-arms the tick timer onto the next minute boundary.
func (c *Controller) untilNextMinute() time.Duration {
	reading, err := c.clock.Read()
	if err != nil {
		return time.Minute
	}
	secs := 60 - reading.Second
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}
