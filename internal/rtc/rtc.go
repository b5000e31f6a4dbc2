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

// Package rtc abstracts the real-time clock peripheral.
package rtc

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Reading is one clock sample.
type Reading struct {
	Second, Minute, Hour int
	Dow                  int // day of week, 1 = Sunday .. 7 = Saturday
	Day, Month, Year     int // Year is two-digit, 2014 = 14
}

// Clock reads and sets the controller clock.
type Clock interface {
	Read() (Reading, error)
	SetTime(hour, minute, second int) error
	SetDate(dow, day, month, year int) error
}

// SystemClock derives the controller clock from the host clock plus a
// settable offset, so T commands work without RTC hardware.
type SystemClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Read() (Reading, error) {
	c.mu.Lock()
	t := time.Now().Add(c.offset)
	c.mu.Unlock()
	return Reading{
		Second: t.Second(),
		Minute: t.Minute(),
		Hour:   t.Hour(),
		Dow:    int(t.Weekday()) + 1,
		Day:    t.Day(),
		Month:  int(t.Month()),
		Year:   t.Year() % 100,
	}, nil
}

// SetTime adjusts the offset so the clock reads the given time of day.
// The date is unchanged.
func (c *SystemClock) SetTime(hour, minute, second int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return errors.Errorf("invalid time %02d:%02d:%02d", hour, minute, second)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().Add(c.offset)
	want := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, now.Location())
	c.offset += want.Sub(now)
	return nil
}

// SetDate adjusts the offset so the clock reads the given date. The
// day of week is derived from the date; the dow argument is accepted
// for protocol compatibility and otherwise ignored.
func (c *SystemClock) SetDate(dow, day, month, year int) error {
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 0 || year > 99 {
		return errors.Errorf("invalid date %02d/%02d/%02d", day, month, year)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().Add(c.offset)
	want := time.Date(2000+year, time.Month(month), day,
		now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	c.offset += want.Sub(now)
	return nil
}
