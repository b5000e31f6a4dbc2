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

// Package store maps sensor, zone and event records onto fixed-width
// byte slots in non-volatile memory, addressed as base + index*size.
//
// Layout:
//
//	0    sensors, 10 slots x 10 bytes: 0-7 UID (first byte zero =
//	     unconfigured, terminates load), 8 zone
//	100  zones, 10 slots x 2 bytes: 0 hysteresis, 1 space flag
//	200  events, 100 slots x 10 bytes: 0 day mask (zero = unconfigured,
//	     terminates load), 1-2 time big-endian, 3 zone, 4-5 setpoint
//	     big-endian two's complement
package store

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	MaxSensors = 10
	MaxEvents  = 100
	MaxZones   = 10

	sensorStart = 0
	sensorSize  = 10
	zoneStart   = 100
	zoneSize    = 2
	eventStart  = 200
	eventSize   = 10

	// Size is the region footprint the layout requires.
	Size = 1220
)

// Sensor is one temperature probe on the one-wire bus.
type Sensor struct {
	UID  [8]byte
	Zone uint8
	// Value is the latest reading in hundredths of a degree. Volatile.
	Value int
}

// Event is one weekly schedule entry: at Time on every day in Days,
// the zone setpoint becomes Setpoint.
type Event struct {
	Days     uint8  // day-of-week bitmask, bit0 = Sunday
	Time     uint16 // minutes since 00:00
	Zone     uint8
	Setpoint int16 // tenths of a degree
}

// Zone is one heating circuit. Setpoint and On are volatile; only
// Hyst and Space persist.
type Zone struct {
	Setpoint int16 // tenths of a degree, written by schedule events
	Hyst     uint8 // tenths of a degree below setpoint before demand returns
	On       bool
	Space    bool // true for space heating (drives the pump), false for the cylinder
}

// CapacityError reports an add against a full table. Non-fatal.
type CapacityError struct {
	Kind string
	Max  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s table full (max %d)", e.Kind, e.Max)
}

// IndexError reports an operation against a slot that is not configured.
type IndexError struct {
	Kind  string
	Index int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("no %s at index %d", e.Kind, e.Index)
}

// Store holds all configuration records and keeps them in step with the
// backing region. Mutations are write-through.
type Store struct {
	region  Region
	Sensors []Sensor
	Events  []Event
	Zones   [MaxZones]Zone
}

func New(region Region) *Store {
	return &Store{
		region:  region,
		Sensors: make([]Sensor, 0, MaxSensors),
		Events:  make([]Event, 0, MaxEvents),
	}
}

// Load populates all three collections from the region, stopping each
// scan at its sentinel. It is a pure function of region contents:
// volatile fields come back zeroed.
func (s *Store) Load() error {
	if s.region.Size() < Size {
		return errors.Errorf("store region too small: %d < %d", s.region.Size(), Size)
	}

	s.Sensors = s.Sensors[:0]
	for i := 0; i < MaxSensors; i++ {
		off := sensorStart + i*sensorSize
		if s.region.ReadByte(off) == 0 {
			break // sensor not configured, list is contiguous
		}
		var sn Sensor
		for j := 0; j < 8; j++ {
			sn.UID[j] = s.region.ReadByte(off + j)
		}
		sn.Zone = s.region.ReadByte(off + 8)
		s.Sensors = append(s.Sensors, sn)
	}

	s.Events = s.Events[:0]
	for i := 0; i < MaxEvents; i++ {
		off := eventStart + i*eventSize
		days := s.region.ReadByte(off)
		if days == 0 {
			break // event not configured, list is contiguous
		}
		s.Events = append(s.Events, Event{
			Days:     days,
			Time:     uint16(s.region.ReadByte(off+1))<<8 | uint16(s.region.ReadByte(off+2)),
			Zone:     s.region.ReadByte(off + 3),
			Setpoint: int16(uint16(s.region.ReadByte(off+4))<<8 | uint16(s.region.ReadByte(off+5))),
		})
	}

	for i := range s.Zones {
		off := zoneStart + i*zoneSize
		s.Zones[i] = Zone{
			Hyst:  s.region.ReadByte(off),
			Space: s.region.ReadByte(off+1) == 1,
		}
	}

	return nil
}

// SaveSensor re-encodes one sensor record into its slot.
func (s *Store) SaveSensor(i int) error {
	if i < 0 || i >= len(s.Sensors) {
		return &IndexError{Kind: "sensor", Index: i}
	}
	off := sensorStart + i*sensorSize
	for j := 0; j < 8; j++ {
		if err := s.region.WriteByte(off+j, s.Sensors[i].UID[j]); err != nil {
			return err
		}
	}
	return s.region.WriteByte(off+8, s.Sensors[i].Zone)
}

// SaveEvent re-encodes one event record into its slot.
func (s *Store) SaveEvent(i int) error {
	if i < 0 || i >= len(s.Events) {
		return &IndexError{Kind: "event", Index: i}
	}
	ev := s.Events[i]
	off := eventStart + i*eventSize
	bytes := [eventSize]byte{
		ev.Days,
		byte(ev.Time >> 8), byte(ev.Time),
		ev.Zone,
		byte(uint16(ev.Setpoint) >> 8), byte(uint16(ev.Setpoint)),
	}
	for j := 0; j < 6; j++ {
		if err := s.region.WriteByte(off+j, bytes[j]); err != nil {
			return err
		}
	}
	return nil
}

// SaveZone re-encodes one zone record into its slot.
func (s *Store) SaveZone(i int) error {
	if i < 0 || i >= MaxZones {
		return &IndexError{Kind: "zone", Index: i}
	}
	off := zoneStart + i*zoneSize
	if err := s.region.WriteByte(off, s.Zones[i].Hyst); err != nil {
		return err
	}
	space := byte(0)
	if s.Zones[i].Space {
		space = 1
	}
	return s.region.WriteByte(off+1, space)
}

// AddSensor adds a sensor or, when the UID is already configured,
// moves the existing record to the given zone. UID uniqueness is the
// sole identity invariant. Returns the record index and whether an
// existing record was updated.
func (s *Store) AddSensor(uid [8]byte, zone uint8) (int, bool, error) {
	for i := range s.Sensors {
		if s.Sensors[i].UID == uid {
			s.Sensors[i].Zone = zone
			return i, true, s.SaveSensor(i)
		}
	}
	if len(s.Sensors) >= MaxSensors {
		return -1, false, &CapacityError{Kind: "sensor", Max: MaxSensors}
	}
	s.Sensors = append(s.Sensors, Sensor{UID: uid, Zone: zone})
	i := len(s.Sensors) - 1
	return i, false, s.SaveSensor(i)
}

// AppendEvent adds an event at the end of the contiguous list.
func (s *Store) AppendEvent(ev Event) (int, error) {
	if len(s.Events) >= MaxEvents {
		return -1, &CapacityError{Kind: "event", Max: MaxEvents}
	}
	s.Events = append(s.Events, ev)
	i := len(s.Events) - 1
	return i, s.SaveEvent(i)
}

// DeleteEvent removes the event at i, shifting all later events down
// one slot and re-persisting each, then restores the sentinel on the
// freed slot so the list stays contiguous.
func (s *Store) DeleteEvent(i int) error {
	if i < 0 || i >= len(s.Events) {
		return &IndexError{Kind: "event", Index: i}
	}
	copy(s.Events[i:], s.Events[i+1:])
	s.Events = s.Events[:len(s.Events)-1]
	for j := i; j < len(s.Events); j++ {
		if err := s.SaveEvent(j); err != nil {
			return err
		}
	}
	return s.region.WriteByte(eventStart+len(s.Events)*eventSize, 0)
}

// ClearSensors wipes the sentinel byte of every sensor slot. The rest
// of each record is left behind; the sentinel alone stops the next load.
func (s *Store) ClearSensors() error {
	s.Sensors = s.Sensors[:0]
	for i := 0; i < MaxSensors; i++ {
		if err := s.region.WriteByte(sensorStart+i*sensorSize, 0); err != nil {
			return err
		}
	}
	return nil
}

// ClearEvents wipes the sentinel byte of every event slot.
func (s *Store) ClearEvents() error {
	s.Events = s.Events[:0]
	for i := 0; i < MaxEvents; i++ {
		if err := s.region.WriteByte(eventStart+i*eventSize, 0); err != nil {
			return err
		}
	}
	return nil
}

// ReadByte exposes raw region contents for the diagnostic dump.
func (s *Store) ReadByte(off int) byte { return s.region.ReadByte(off) }
