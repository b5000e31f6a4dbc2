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

// Package onewire abstracts the Dallas one-wire temperature bus.
package onewire

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// UID is the 8-byte unique identifier of a bus device.
type UID [8]byte

func (u UID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// ParseUID decodes a 16-hex-character identifier.
func ParseUID(s string) (UID, error) {
	var u UID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 8 {
		return u, errors.Errorf("invalid sensor uid %q", s)
	}
	copy(u[:], b)
	return u, nil
}

// MaxConversionTime bounds the blocking wait for one temperature
// conversion. ReadCelsiusHundredths returns within this time; nothing
// else proceeds while a conversion is in flight.
const MaxConversionTime = time.Second

// ReadError reports a failed sensor read (CRC mismatch, missing
// device, bus timeout). The previous reading stays in effect.
type ReadError struct {
	UID   UID
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read sensor %s: %v", e.UID, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

// Bus is the temperature bus driver.
type Bus interface {
	// Discover enumerates the devices currently on the bus.
	Discover() ([]UID, error)
	// ReadCelsiusHundredths triggers a conversion and returns the
	// reading in hundredths of a degree.
	ReadCelsiusHundredths(uid UID) (int, error)
}

// crc8 computes the Dallas/Maxim CRC used by DS18B20 scratchpad frames.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8C
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// decodeScratchpad converts a 9-byte scratchpad frame into hundredths
// of a degree. Raw device resolution is 1/16 degree, so raw * 6.25.
func decodeScratchpad(frame [9]byte) (int, error) {
	if crc8(frame[:8]) != frame[8] {
		return 0, errors.New("scratchpad crc mismatch")
	}
	raw := int16(uint16(frame[0]) | uint16(frame[1])<<8)
	return int(raw) * 625 / 100, nil
}

// encodeScratchpad builds a frame for a raw sixteenths-of-a-degree
// reading, as the simulated bus presents it.
func encodeScratchpad(raw int16) [9]byte {
	var frame [9]byte
	frame[0] = byte(uint16(raw))
	frame[1] = byte(uint16(raw) >> 8)
	frame[8] = crc8(frame[:8])
	return frame
}
