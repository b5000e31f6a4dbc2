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

// Package gpio drives the boiler and pump relays. The real
// implementation uses the Linux GPIO character device; the fake
// records transitions for tests and bench runs.
package gpio

// Outputs sets the two actuator relays.
type Outputs interface {
	Set(boiler, pump bool) error

	// Close releases GPIO resources, leaving both relays off.
	Close() error
}

// Default line numbers, matching the original controller wiring.
const (
	DefaultChip       = "gpiochip0"
	DefaultBoilerLine = 9
	DefaultPumpLine   = 8
)
