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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUIDRoundTrip(t *testing.T) {
	uid, err := ParseUID("28FF641E8D163B41")
	require.NoError(t, err)
	assert.Equal(t, UID{0x28, 0xFF, 0x64, 0x1E, 0x8D, 0x16, 0x3B, 0x41}, uid)
	assert.Equal(t, "28FF641E8D163B41", uid.String())

	// lower case accepted, rendered upper
	uid2, err := ParseUID("28ff641e8d163b41")
	require.NoError(t, err)
	assert.Equal(t, uid, uid2)
}

func TestParseUIDRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "28FF", "28FF641E8D163B4G", "28FF641E8D163B4100"} {
		_, err := ParseUID(s)
		assert.Error(t, err, s)
	}
}

func TestScratchpadRoundTrip(t *testing.T) {
	tests := []struct {
		raw  int16 // sixteenths
		want int   // hundredths
	}{
		{0, 0},
		{16, 100},    // 1.0C
		{401, 2506},  // 25.0625C truncated
		{-16, -100},  // -1.0C
		{-88, -550},  // -5.5C
		{1600, 10000},
	}
	for _, tt := range tests {
		v, err := decodeScratchpad(encodeScratchpad(tt.raw))
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, "raw %d", tt.raw)
	}
}

func TestDecodeScratchpadRejectsBadCRC(t *testing.T) {
	frame := encodeScratchpad(401)
	frame[8] ^= 0x01
	_, err := decodeScratchpad(frame)
	assert.Error(t, err)
}

func TestCRC8ZeroFrame(t *testing.T) {
	assert.Equal(t, byte(0), crc8(make([]byte, 8)))
	assert.NotEqual(t, byte(0), crc8([]byte{0x28, 0xFF}))
}

func TestSimBusRead(t *testing.T) {
	b := NewSimBus()
	uid, _ := ParseUID("28FF641E8D163B41")
	b.SetCelsius(uid, 20.5)

	v, err := b.ReadCelsiusHundredths(uid)
	require.NoError(t, err)
	assert.Equal(t, 2050, v)
}

func TestSimBusUnknownDevice(t *testing.T) {
	b := NewSimBus()
	uid, _ := ParseUID("28FF641E8D163B41")
	_, err := b.ReadCelsiusHundredths(uid)
	var rdErr *ReadError
	require.ErrorAs(t, err, &rdErr)
	assert.Equal(t, uid, rdErr.UID)
}

func TestSimBusFaultyDevice(t *testing.T) {
	b := NewSimBus()
	uid, _ := ParseUID("28FF641E8D163B41")
	b.SetCelsius(uid, 20.5)
	b.SetFaulty(uid, true)

	_, err := b.ReadCelsiusHundredths(uid)
	assert.Error(t, err)

	b.SetFaulty(uid, false)
	v, err := b.ReadCelsiusHundredths(uid)
	require.NoError(t, err)
	assert.Equal(t, 2050, v)
}

func TestSimBusScriptedError(t *testing.T) {
	b := NewSimBus()
	uid, _ := ParseUID("28FF641E8D163B41")
	b.SetCelsius(uid, 20.5)
	b.SetError(uid, errors.New("bus glitch"))

	_, err := b.ReadCelsiusHundredths(uid)
	assert.ErrorContains(t, err, "bus glitch")

	b.SetError(uid, nil)
	_, err = b.ReadCelsiusHundredths(uid)
	assert.NoError(t, err)
}

func TestSimBusDiscoverSorted(t *testing.T) {
	b := NewSimBus()
	u1, _ := ParseUID("28FF641E8D163B41")
	u2, _ := ParseUID("28AA641E8D163B41")
	b.SetCelsius(u1, 20)
	b.SetCelsius(u2, 21)

	uids, err := b.Discover()
	require.NoError(t, err)
	assert.Equal(t, []UID{u2, u1}, uids)
}

func TestDeviceNameRoundTrip(t *testing.T) {
	uid, err := uidFromDeviceName("28-0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, byte(0x28), uid[0])
	assert.Equal(t, crc8(uid[:7]), uid[7])
	assert.Equal(t, "28-0123456789ab", deviceName(uid))
}

func TestUIDFromDeviceNameRejectsForeign(t *testing.T) {
	for _, name := range []string{"w1_bus_master1", "10-0008001a4b2c", "28-012345", "28-01234567890g"} {
		_, err := uidFromDeviceName(name)
		assert.Error(t, err, name)
	}
}

func TestW1Bus(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "28-0123456789ab")
	require.NoError(t, os.Mkdir(dev, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dev, "temperature"), []byte("21437\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "w1_bus_master1"), 0o755))

	b := NewW1Bus(root)
	uids, err := b.Discover()
	require.NoError(t, err)
	require.Len(t, uids, 1)
	assert.Equal(t, "28-0123456789ab", deviceName(uids[0]))

	v, err := b.ReadCelsiusHundredths(uids[0])
	require.NoError(t, err)
	assert.Equal(t, 2143, v)

	missing, _ := ParseUID("28FF641E8D163B41")
	_, err = b.ReadCelsiusHundredths(missing)
	var rdErr *ReadError
	assert.ErrorAs(t, err, &rdErr)
}
