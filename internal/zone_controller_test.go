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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riban-bw/heating-controller/internal/store"
)

func TestUpdateZoneHysteresis(t *testing.T) {
	// setpoint 45.0C, hysteresis 0.5C: on at <= 44.5C, off at >= 45.0C
	tests := []struct {
		name   string
		on     bool
		value  int // hundredths
		wantOn bool
	}{
		{"turns on below band", false, 4440, true},
		{"turns on at band edge", false, 4450, true},
		{"holds off inside band", false, 4470, false},
		{"holds on inside band", true, 4470, true},
		{"turns off at setpoint", true, 4500, false},
		{"turns off above setpoint", true, 4510, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := store.Zone{Setpoint: 450, Hyst: 5, On: tt.on}
			UpdateZone(&z, tt.value)
			assert.Equal(t, tt.wantOn, z.On)
		})
	}
}

func TestUpdateZoneZeroHysteresis(t *testing.T) {
	z := store.Zone{Setpoint: 200, Hyst: 0}
	UpdateZone(&z, 1990)
	assert.True(t, z.On)
	UpdateZone(&z, 2000)
	assert.False(t, z.On)
}

func TestAggregate(t *testing.T) {
	var zones [store.MaxZones]store.Zone

	boiler, pump := Aggregate(&zones)
	assert.False(t, boiler)
	assert.False(t, pump)

	// zone 0 is the water circuit: demand fires the boiler only
	zones[0].On = true
	boiler, pump = Aggregate(&zones)
	assert.True(t, boiler)
	assert.False(t, pump)

	// a space heating zone with demand also fires the pump
	zones[3].On = true
	zones[3].Space = true
	boiler, pump = Aggregate(&zones)
	assert.True(t, boiler)
	assert.True(t, pump)
}

func TestAggregateNonSpaceZoneNeverPumps(t *testing.T) {
	var zones [store.MaxZones]store.Zone
	zones[2].On = true // Space false

	boiler, pump := Aggregate(&zones)
	assert.True(t, boiler)
	assert.False(t, pump)
}

func TestAggregateZoneZeroSpaceFlagIgnored(t *testing.T) {
	var zones [store.MaxZones]store.Zone
	zones[0].On = true
	zones[0].Space = true

	boiler, pump := Aggregate(&zones)
	assert.True(t, boiler)
	assert.False(t, pump)
}
