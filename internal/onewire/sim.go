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

package onewire

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SimBus is a scripted bus for bench runs and tests. Devices answer
// with scratchpad frames built from their configured temperature, so
// reads go through the same frame decode as real hardware.
type SimBus struct {
	mu     sync.Mutex
	raw    map[UID]int16 // sixteenths of a degree
	faulty map[UID]bool  // answer with a corrupted frame
	errs   map[UID]error
	// Delay is the simulated conversion wait, capped at
	// MaxConversionTime. Zero in tests.
	Delay time.Duration
}

func NewSimBus() *SimBus {
	return &SimBus{
		raw:    make(map[UID]int16),
		faulty: make(map[UID]bool),
		errs:   make(map[UID]error),
	}
}

// SetCelsius configures a device reading in degrees.
func (b *SimBus) SetCelsius(uid UID, celsius float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raw[uid] = int16(celsius * 16)
}

// SetFaulty makes a device answer with a corrupted scratchpad frame.
func (b *SimBus) SetFaulty(uid UID, faulty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faulty[uid] = faulty
}

// SetError makes reads of a device fail outright.
func (b *SimBus) SetError(uid UID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.errs, uid)
	} else {
		b.errs[uid] = err
	}
}

func (b *SimBus) Discover() ([]UID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uids := make([]UID, 0, len(b.raw))
	for uid := range b.raw {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i].String() < uids[j].String() })
	return uids, nil
}

func (b *SimBus) ReadCelsiusHundredths(uid UID) (int, error) {
	delay := b.Delay
	if delay > MaxConversionTime {
		delay = MaxConversionTime
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	raw, ok := b.raw[uid]
	faulty := b.faulty[uid]
	err := b.errs[uid]
	b.mu.Unlock()

	if err != nil {
		return 0, &ReadError{UID: uid, Cause: err}
	}
	if !ok {
		return 0, &ReadError{UID: uid, Cause: errors.New("no such device")}
	}

	frame := encodeScratchpad(raw)
	if faulty {
		frame[8] ^= 0xFF
	}
	v, err := decodeScratchpad(frame)
	if err != nil {
		return 0, &ReadError{UID: uid, Cause: err}
	}
	return v, nil
}
