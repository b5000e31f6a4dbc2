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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultW1Root = "/sys/bus/w1/devices"
	ds18b20Family = 0x28
)

// W1Bus reads DS18B20 devices through the kernel w1 sysfs interface.
// The kernel driver performs the conversion wait and CRC check; a
// read blocks for up to MaxConversionTime.
type W1Bus struct {
	root string
}

// NewW1Bus opens the sysfs bus. An empty root selects the kernel
// default location.
func NewW1Bus(root string) *W1Bus {
	if root == "" {
		root = defaultW1Root
	}
	return &W1Bus{root: root}
}

func (b *W1Bus) Discover() ([]UID, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, errors.Wrapf(err, "scan w1 bus %s", b.root)
	}
	var uids []UID
	for _, e := range entries {
		uid, err := uidFromDeviceName(e.Name())
		if err != nil {
			continue // bus master and foreign families
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

func (b *W1Bus) ReadCelsiusHundredths(uid UID) (int, error) {
	path := filepath.Join(b.root, deviceName(uid), "temperature")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &ReadError{UID: uid, Cause: err}
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, &ReadError{UID: uid, Cause: errors.Wrap(err, "parse temperature")}
	}
	return milli / 10, nil
}

// deviceName renders a UID as the sysfs directory name
// family-serial, e.g. 28-0123456789ab.
func deviceName(uid UID) string {
	return fmt.Sprintf("%02x-%s", uid[0], hex.EncodeToString(uid[1:7]))
}

// uidFromDeviceName reverses deviceName, restoring the CRC byte.
func uidFromDeviceName(name string) (UID, error) {
	var uid UID
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 || len(parts[1]) != 12 {
		return uid, errors.Errorf("not a sensor device: %s", name)
	}
	family, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil || byte(family) != ds18b20Family {
		return uid, errors.Errorf("not a temperature sensor: %s", name)
	}
	serial, err := hex.DecodeString(parts[1])
	if err != nil {
		return uid, errors.Wrapf(err, "device serial %s", name)
	}
	uid[0] = byte(family)
	copy(uid[1:7], serial)
	uid[7] = crc8(uid[:7])
	return uid, nil
}
