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
	"github.com/riban-bw/heating-controller/internal/store"
)

// UpdateZone applies the hysteresis law to one zone for a sensor
// reading in hundredths of a degree. Setpoint and hysteresis are in
// tenths, so the reading is scaled before comparing. Demand drops at
// the setpoint, returns at setpoint minus hysteresis, and holds
// between the two (the dead band).
func UpdateZone(z *store.Zone, valueHundredths int) {
	vt := valueHundredths / 10
	sp := int(z.Setpoint)
	switch {
	case vt >= sp:
		z.On = false
	case vt <= sp-int(z.Hyst):
		z.On = true
	}
}

// Aggregate ORs zone demand into the two actuator signals. Any zone
// with demand fires the boiler; only space heating zones fire the
// pump. Zone 0 is the hot water cylinder and never drives the pump,
// whatever its flag says.
func Aggregate(zones *[store.MaxZones]store.Zone) (boiler, pump bool) {
	for i := range zones {
		if !zones[i].On {
			continue
		}
		boiler = true
		if i != 0 && zones[i].Space {
			pump = true
		}
	}
	return boiler, pump
}
