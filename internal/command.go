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
	"bufio"
	"fmt"
	"io"

	"github.com/riban-bw/heating-controller/internal/logger"
	"github.com/riban-bw/heating-controller/internal/onewire"
	"github.com/riban-bw/heating-controller/internal/store"
)

// maxLineLen caps a command line. A line that fills the buffer without
// a terminator is discarded; parsing resumes at the next line.
const maxLineLen = 30

var dowNames = [...]string{"", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// field is one fixed-width column span of the line protocol. Column
// positions are the wire contract; commands are never tokenized.
type field struct {
	off, width int
}

var (
	fldSensorUID  = field{2, 16}
	fldSensorZone = field{19, 1}

	fldEventIndex = field{3, 2}
	fldEventDays  = field{3, 2}
	fldEventHour  = field{6, 2}
	fldEventMin   = field{9, 2}
	fldEventZone  = field{12, 1}
	fldEventSign  = field{14, 1}
	fldEventValue = field{15, 3}

	fldZoneIndex = field{2, 1}
	fldZoneHyst  = field{4, 2}
	fldZoneSpace = field{7, 1}

	fldTimeHour  = field{2, 2}
	fldTimeMin   = field{5, 2}
	fldTimeSec   = field{8, 2}
	fldDateDow   = field{11, 1}
	fldDateDay   = field{13, 2}
	fldDateMonth = field{16, 2}
	fldDateYear  = field{19, 2}
)

// digits decodes a fixed-width decimal field. Non-digit input fails
// the decode; the caller drops the command.
func digits(line []byte, f field) (int, bool) {
	if len(line) < f.off+f.width {
		return 0, false
	}
	v := 0
	for _, c := range line[f.off : f.off+f.width] {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	return v, true
}

// hexNibble maps '0'-'9', 'A'-'F' and 'a'-'f'. Anything else decodes
// to zero rather than failing; garbage in, zeroes out.
func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

func hexByteAt(line []byte, off int) byte {
	return hexNibble(line[off])<<4 | hexNibble(line[off+1])
}

// ReadLines feeds CR/LF-terminated lines to fn until r is exhausted.
// Overflowing lines are discarded per the protocol.
func ReadLines(r io.Reader, fn func(line []byte)) error {
	br := bufio.NewReader(r)
	buf := make([]byte, 0, maxLineLen)
	overflow := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch {
		case b == '\n' || b == '\r':
			if !overflow && len(buf) > 0 {
				line := make([]byte, len(buf))
				copy(line, buf)
				fn(line)
			}
			buf = buf[:0]
			overflow = false
		case overflow:
			// draining an overlong line
		default:
			buf = append(buf, b)
			if len(buf) >= maxLineLen {
				buf = buf[:0]
				overflow = true
			}
		}
	}
}

// ExecLine parses one command line and dispatches on its first byte.
// Dispatch between an operation and its listing form is purely by
// length. Malformed commands are ignored: the protocol has no error
// responses, only silence.
func (c *Controller) ExecLine(line []byte, w io.Writer) {
	if len(line) == 0 {
		return
	}
	switch line[0] {
	case 'S':
		if len(line) >= 20 {
			c.cmdAddSensor(line, w)
		} else {
			c.cmdListSensors(w)
		}
	case 'E':
		if len(line) >= 5 {
			c.cmdEventMutation(line, w)
		} else {
			c.cmdListEvents(w)
		}
	case 'Z':
		if len(line) >= 8 {
			c.cmdConfigZone(line)
		} else {
			c.cmdListZones(w)
		}
	case 'T':
		c.cmdTime(line, w)
	case 'C':
		c.cmdClear(line, w)
	case 's':
		c.cmdScan(w)
	case 'd':
		c.cmdDump(w)
	default:
		cmdHelp(w)
	}
}

// S <16 hex chars> <zone digit>
func (c *Controller) cmdAddSensor(line []byte, w io.Writer) {
	var uid [8]byte
	for i := 0; i < 8; i++ {
		uid[i] = hexByteAt(line, fldSensorUID.off+i*2)
	}
	zone, ok := digits(line, fldSensorZone)
	if !ok {
		return
	}

	i, updated, err := c.store.AddSensor(uid, uint8(zone))
	if err != nil {
		if _, full := err.(*store.CapacityError); full {
			fmt.Fprintln(w, "Can't add any more sensors.")
			return
		}
		logger.L().Error(err)
		return
	}
	if updated {
		fmt.Fprintln(w, "Updating existing sensor")
	} else {
		fmt.Fprintf(w, "Adding new sensor [%s]\n", onewire.UID(uid))
	}

	// take a first reading so the listing shows a live value
	if v, err := c.bus.ReadCelsiusHundredths(onewire.UID(uid)); err == nil {
		c.store.Sensors[i].Value = v
	}
}

func (c *Controller) cmdListSensors(w io.Writer) {
	fmt.Fprintf(w, "List sensors - quantity=%d\n", len(c.store.Sensors))
	for _, sn := range c.store.Sensors {
		fmt.Fprintf(w, "Sensor [%s] Zone %d. Temp=%.2fC\n",
			onewire.UID(sn.UID), sn.Zone, float64(sn.Value)/100)
	}
}

// E- <2-digit index> deletes, E+ <2-hex days> <hh:mm> <zone> <+/-vvv> adds.
func (c *Controller) cmdEventMutation(line []byte, w io.Writer) {
	switch line[1] {
	case '-':
		i, ok := digits(line, fldEventIndex)
		if !ok {
			return
		}
		if err := c.sched.DeleteEvent(c.readNow(), i); err != nil {
			logger.L().Debugf("delete event: %v", err)
		}
	case '+':
		if len(line) < 18 {
			return
		}
		days := hexByteAt(line, fldEventDays.off)
		if days == 0 {
			return // a zero mask is the end-of-list sentinel, never stored
		}
		hh, ok1 := digits(line, fldEventHour)
		mm, ok2 := digits(line, fldEventMin)
		zone, ok3 := digits(line, fldEventZone)
		value, ok4 := digits(line, fldEventValue)
		if !ok1 || !ok2 || !ok3 || !ok4 || hh > 23 || mm > 59 {
			return
		}
		setpoint := int16(value)
		if line[fldEventSign.off] == '-' {
			setpoint = -setpoint
		}
		ev := store.Event{
			Days:     days,
			Time:     uint16(hh*60 + mm),
			Zone:     uint8(zone),
			Setpoint: setpoint,
		}
		if _, err := c.sched.AddEvent(c.readNow(), ev); err != nil {
			if _, full := err.(*store.CapacityError); full {
				fmt.Fprintln(w, "Can't add any more events.")
				return
			}
			logger.L().Error(err)
		}
	}
}

func (c *Controller) cmdListEvents(w io.Writer) {
	fmt.Fprintf(w, "List events - quantity=%d\n", len(c.store.Events))
	for i, ev := range c.store.Events {
		fmt.Fprintf(w, "%d: %d:%02d ", i, ev.Time/60, ev.Time%60)
		for dow := 1; dow <= 7; dow++ {
			if ev.Days&(1<<(dow-1)) != 0 {
				fmt.Fprintf(w, "%s ", dowNames[dow])
			}
		}
		fmt.Fprintf(w, "Zone=%d Setpoint=%.1f\n", ev.Zone, float64(ev.Setpoint)/10)
	}
	next := c.sched.Next()
	fmt.Fprintf(w, "Next event at %d %d\n", next.Day, next.Time)
}

// Z <zone digit> <2-digit hyst> <0/1 space>
func (c *Controller) cmdConfigZone(line []byte) {
	zone, ok1 := digits(line, fldZoneIndex)
	hyst, ok2 := digits(line, fldZoneHyst)
	if !ok1 || !ok2 || zone >= store.MaxZones {
		return
	}
	c.store.Zones[zone].Hyst = uint8(hyst)
	c.store.Zones[zone].Space = line[fldZoneSpace.off] != '0'
	if err := c.store.SaveZone(zone); err != nil {
		logger.L().Error(err)
	}
}

func (c *Controller) cmdListZones(w io.Writer) {
	fmt.Fprintln(w, "List zones")
	for i, z := range c.store.Zones {
		mode, state := "Water", "Off"
		if z.Space {
			mode = "Space"
		}
		if z.On {
			state = "On"
		}
		fmt.Fprintf(w, "%d  %.1fC Hyst=%.1f %s %s\n",
			i, float64(z.Setpoint)/10, float64(z.Hyst)/10, mode, state)
	}
}

// T hh:mm[:ss] [dow dd/mm/yy] sets the clock; bare T shows it. The
// current time is echoed either way.
func (c *Controller) cmdTime(line []byte, w io.Writer) {
	if len(line) >= 7 {
		hh, ok1 := digits(line, fldTimeHour)
		mm, ok2 := digits(line, fldTimeMin)
		if !ok1 || !ok2 {
			return
		}
		ss := 0
		if len(line) >= 10 {
			var ok bool
			if ss, ok = digits(line, fldTimeSec); !ok {
				return
			}
		}
		if err := c.clock.SetTime(hh, mm, ss); err != nil {
			logger.L().Errorf("set time: %v", err)
			return
		}
		if len(line) >= 21 {
			dow, ok1 := digits(line, fldDateDow)
			day, ok2 := digits(line, fldDateDay)
			month, ok3 := digits(line, fldDateMonth)
			year, ok4 := digits(line, fldDateYear)
			if ok1 && ok2 && ok3 && ok4 {
				if err := c.clock.SetDate(dow, day, month, year); err != nil {
					logger.L().Errorf("set date: %v", err)
				}
			}
		}
	}
	c.showTime(w)
}

func (c *Controller) showTime(w io.Writer) {
	r, err := c.clock.Read()
	if err != nil {
		logger.L().Errorf("read clock: %v", err)
		return
	}
	dow := ""
	if r.Dow >= 1 && r.Dow <= 7 {
		dow = dowNames[r.Dow]
	}
	fmt.Fprintf(w, "%02d:%02d:%02d %s %02d/%02d/%02d\n",
		r.Hour, r.Minute, r.Second, dow, r.Day, r.Month, r.Year)
}

// CS clears all sensors, CE clears all events.
func (c *Controller) cmdClear(line []byte, w io.Writer) {
	if len(line) < 2 {
		return
	}
	switch line[1] {
	case 'S':
		fmt.Fprintln(w, "Clear all sensors")
		if err := c.store.ClearSensors(); err != nil {
			logger.L().Error(err)
		}
	case 'E':
		fmt.Fprintln(w, "Clear all events")
		if err := c.sched.Clear(); err != nil {
			logger.L().Error(err)
		}
	}
}

// s scans the bus and prints every device with a live reading.
func (c *Controller) cmdScan(w io.Writer) {
	uids, err := c.bus.Discover()
	if err != nil {
		logger.L().Errorf("scan bus: %v", err)
		return
	}
	for _, uid := range uids {
		v, err := c.bus.ReadCelsiusHundredths(uid)
		if err != nil {
			fmt.Fprintf(w, "%s Error reading temperature\n", uid)
			continue
		}
		fmt.Fprintf(w, "%s Value=%.2fC\n", uid, float64(v)/100)
	}
}

// d dumps the raw store image, ten bytes per row.
func (c *Controller) cmdDump(w io.Writer) {
	for off := 0; off < store.Size; off += 10 {
		fmt.Fprintf(w, "%4d\t", off)
		for j := 0; j < 10; j++ {
			fmt.Fprintf(w, "%02X ", c.store.ReadByte(off+j))
		}
		fmt.Fprintln(w)
	}
}

func cmdHelp(w io.Writer) {
	fmt.Fprintln(w, "E\t\t\tList Events")
	fmt.Fprintln(w, "E- ee\t\t\tDelete event ee")
	fmt.Fprintln(w, "E+ dd hh:mm z +vvv\tAdd event dd=bitwise DoW, hh:mm=time, z=zone, +/-v=temperature (x10)")
	fmt.Fprintln(w, "S uuuuuuuuuuuuuuuu z\tAdd / modify sensor u=UID, z=zone")
	fmt.Fprintln(w, "S\t\t\tList Sensors")
	fmt.Fprintln(w, "T hh:mm:ss a dd/mm/yy\tSet time and date a=DoW, Sunday = 1")
	fmt.Fprintln(w, "T\t\t\tShow time")
	fmt.Fprintln(w, "CE\t\t\tClear all events")
	fmt.Fprintln(w, "CS\t\t\tClear all sensors")
	fmt.Fprintln(w, "Z z aa b\t\tConfigure zone z=zone, a=hysteresis (C/10), b=1 for space heating")
	fmt.Fprintln(w, "Z\t\t\tList zones")
	fmt.Fprintln(w, "s\t\t\tScan for sensors")
	fmt.Fprintln(w, "d\t\t\tDebug output")
}
