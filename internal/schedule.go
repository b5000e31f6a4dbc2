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
	"github.com/riban-bw/heating-controller/internal/logger"
	"github.com/riban-bw/heating-controller/internal/store"
)

// Timestamp is "now" as minutes since midnight plus the single active
// day bit (bit0 = Sunday .. bit6 = Saturday).
type Timestamp struct {
	Time uint16
	Day  uint8
}

// Scheduler owns the weekly event list and the cached pointer to the
// next upcoming event. A zero Day in the pointer means no events are
// configured.
type Scheduler struct {
	store *store.Store
	next  Timestamp
}

func NewScheduler(st *store.Store) *Scheduler {
	return &Scheduler{store: st}
}

// Next returns the cached next-event pointer.
func (s *Scheduler) Next() Timestamp { return s.next }

// IsDue reports whether the cached pointer matches now exactly.
func (s *Scheduler) IsDue(now Timestamp) bool {
	return s.next.Day == now.Day && s.next.Time == now.Time
}

// ProcessEvents applies every due event and recomputes the pointer.
func (s *Scheduler) ProcessEvents(now Timestamp) {
	s.ApplyDue(now)
	s.RecomputeNext(now)
}

// ApplyDue writes the setpoint of every event matching now into its
// zone, in list order. When several events hit the same zone in the
// same minute the last write wins.
func (s *Scheduler) ApplyDue(now Timestamp) {
	for _, ev := range s.store.Events {
		if ev.Time == now.Time && ev.Days&now.Day != 0 && int(ev.Zone) < store.MaxZones {
			s.store.Zones[ev.Zone].Setpoint = ev.Setpoint
			logger.L().Debugf("event fired: zone %d setpoint %.1f", ev.Zone, float64(ev.Setpoint)/10)
		}
	}
}

// RecomputeNext caches the earliest event strictly later today, or
// parks the pointer at midnight of the next day. Lookahead is one day
// per call; the midnight wake runs the scan again for that day.
func (s *Scheduler) RecomputeNext(now Timestamp) {
	if len(s.store.Events) == 0 {
		s.next = Timestamp{}
		return
	}

	best := uint16(0xFFFF)
	for _, ev := range s.store.Events {
		if ev.Days&now.Day != 0 && ev.Time > now.Time && ev.Time < best {
			best = ev.Time
		}
	}
	if best != 0xFFFF {
		s.next = Timestamp{Time: best, Day: now.Day}
		return
	}
	s.next = Timestamp{Time: 0, Day: nextDayBit(now.Day)}
}

// nextDayBit shifts the active day bit forward one day, wrapping from
// Saturday back to Sunday.
func nextDayBit(day uint8) uint8 {
	day <<= 1
	if day == 0 || day > 0x40 {
		return 0x01
	}
	return day
}

// AddEvent appends an event and refreshes the pointer. Due events are
// applied immediately, so an event aimed at the current minute takes
// effect without waiting for the next tick.
func (s *Scheduler) AddEvent(now Timestamp, ev store.Event) (int, error) {
	i, err := s.store.AppendEvent(ev)
	if err != nil {
		return -1, err
	}
	s.ProcessEvents(now)
	return i, nil
}

// DeleteEvent removes the event at i and refreshes the pointer.
func (s *Scheduler) DeleteEvent(now Timestamp, i int) error {
	if err := s.store.DeleteEvent(i); err != nil {
		return err
	}
	s.RecomputeNext(now)
	return nil
}

// Clear drops every event and resets the pointer to the no-events
// sentinel.
func (s *Scheduler) Clear() error {
	if err := s.store.ClearEvents(); err != nil {
		return err
	}
	s.next = Timestamp{}
	return nil
}
