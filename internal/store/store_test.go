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

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUID(first byte) [8]byte {
	return [8]byte{first, 0xFF, 0x64, 0x1E, 0x8D, 0x16, 0x3B, 0x41}
}

func reload(t *testing.T, region Region) *Store {
	t.Helper()
	s := New(region)
	require.NoError(t, s.Load())
	return s
}

func TestSensorRoundTrip(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)

	uid := testUID(0x28)
	i, updated, err := s.AddSensor(uid, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.False(t, updated)
	s.Sensors[0].Value = 2050 // volatile, must not persist

	s2 := reload(t, region)
	require.Len(t, s2.Sensors, 1)
	assert.Equal(t, uid, s2.Sensors[0].UID)
	assert.Equal(t, uint8(3), s2.Sensors[0].Zone)
	assert.Equal(t, 0, s2.Sensors[0].Value)
}

func TestSensorDuplicateUIDUpdatesZone(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)

	uid := testUID(0x28)
	_, _, err := s.AddSensor(uid, 1)
	require.NoError(t, err)
	i, updated, err := s.AddSensor(uid, 7)
	require.NoError(t, err)

	assert.Equal(t, 0, i)
	assert.True(t, updated)
	require.Len(t, s.Sensors, 1)
	assert.Equal(t, uint8(7), s.Sensors[0].Zone)

	s2 := reload(t, region)
	require.Len(t, s2.Sensors, 1)
	assert.Equal(t, uint8(7), s2.Sensors[0].Zone)
}

func TestSensorCapacity(t *testing.T) {
	s := New(NewMemRegion(Size))
	for i := 0; i < MaxSensors; i++ {
		_, _, err := s.AddSensor(testUID(byte(i+1)), 0)
		require.NoError(t, err)
	}
	_, _, err := s.AddSensor(testUID(0xEE), 0)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "sensor", capErr.Kind)
	assert.Len(t, s.Sensors, MaxSensors)
}

func TestSensorLoadStopsAtSentinel(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)
	_, _, err := s.AddSensor(testUID(0x28), 1)
	require.NoError(t, err)
	_, _, err = s.AddSensor(testUID(0x29), 2)
	require.NoError(t, err)

	// wipe the first slot's sentinel byte; the second record becomes
	// unreachable because the list is contiguous
	require.NoError(t, region.WriteByte(0, 0))

	s2 := reload(t, region)
	assert.Empty(t, s2.Sensors)
}

func TestEventRoundTrip(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)

	ev := Event{Days: 0x41, Time: 1439, Zone: 9, Setpoint: -123}
	i, err := s.AppendEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	s2 := reload(t, region)
	require.Len(t, s2.Events, 1)
	assert.Equal(t, ev, s2.Events[0])
}

func TestEventDeleteShiftsAndRestoresSentinel(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)

	evs := []Event{
		{Days: 0x02, Time: 390, Zone: 1, Setpoint: 200},
		{Days: 0x04, Time: 400, Zone: 2, Setpoint: 210},
		{Days: 0x08, Time: 410, Zone: 3, Setpoint: 220},
	}
	for _, ev := range evs {
		_, err := s.AppendEvent(ev)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteEvent(1))
	require.Len(t, s.Events, 2)
	assert.Equal(t, evs[0], s.Events[0])
	assert.Equal(t, evs[2], s.Events[1])

	s2 := reload(t, region)
	require.Len(t, s2.Events, 2)
	assert.Equal(t, evs[2], s2.Events[1])

	require.NoError(t, s.DeleteEvent(1))
	require.NoError(t, s.DeleteEvent(0))
	s3 := reload(t, region)
	assert.Empty(t, s3.Events)
}

func TestEventDeleteOutOfRange(t *testing.T) {
	s := New(NewMemRegion(Size))
	var idxErr *IndexError
	require.ErrorAs(t, s.DeleteEvent(0), &idxErr)
	_, err := s.AppendEvent(Event{Days: 0x01, Time: 1})
	require.NoError(t, err)
	require.ErrorAs(t, s.DeleteEvent(1), &idxErr)
	require.ErrorAs(t, s.DeleteEvent(-1), &idxErr)
}

func TestEventCapacity(t *testing.T) {
	s := New(NewMemRegion(Size))
	for i := 0; i < MaxEvents; i++ {
		_, err := s.AppendEvent(Event{Days: 0x01, Time: uint16(i)})
		require.NoError(t, err)
	}
	_, err := s.AppendEvent(Event{Days: 0x01, Time: 9})
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, MaxEvents, capErr.Max)
}

func TestZoneRoundTrip(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)
	require.NoError(t, s.Load())

	s.Zones[4].Hyst = 7
	s.Zones[4].Space = true
	s.Zones[4].Setpoint = 215 // volatile
	s.Zones[4].On = true      // volatile
	require.NoError(t, s.SaveZone(4))

	s2 := reload(t, region)
	assert.Equal(t, Zone{Hyst: 7, Space: true}, s2.Zones[4])
}

func TestClearSensors(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)
	for i := 0; i < 3; i++ {
		_, _, err := s.AddSensor(testUID(byte(i+1)), 0)
		require.NoError(t, err)
	}
	require.NoError(t, s.ClearSensors())
	assert.Empty(t, s.Sensors)
	assert.Empty(t, reload(t, region).Sensors)
}

func TestClearEvents(t *testing.T) {
	region := NewMemRegion(Size)
	s := New(region)
	for i := 0; i < 5; i++ {
		_, err := s.AppendEvent(Event{Days: 0x7F, Time: uint16(i * 60)})
		require.NoError(t, err)
	}
	require.NoError(t, s.ClearEvents())
	assert.Empty(t, s.Events)
	assert.Empty(t, reload(t, region).Events)
}

func TestLoadRejectsShortRegion(t *testing.T) {
	s := New(NewMemRegion(100))
	assert.Error(t, s.Load())
}

func TestFileRegionPersists(t *testing.T) {
	path := t.TempDir() + "/store.eeprom"

	r1, err := OpenFileRegion(path, Size)
	require.NoError(t, err)
	s := New(r1)
	_, _, err = s.AddSensor(testUID(0x28), 5)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := OpenFileRegion(path, Size)
	require.NoError(t, err)
	defer r2.Close()
	s2 := New(r2)
	require.NoError(t, s2.Load())
	require.Len(t, s2.Sensors, 1)
	assert.Equal(t, uint8(5), s2.Sensors[0].Zone)
}
