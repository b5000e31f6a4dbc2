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

package rtc

// FakeClock is a test double returning a scripted reading and
// recording set calls.
type FakeClock struct {
	Now      Reading
	ReadErr  error
	TimeSets [][3]int
	DateSets [][4]int
}

func (c *FakeClock) Read() (Reading, error) {
	if c.ReadErr != nil {
		return Reading{}, c.ReadErr
	}
	return c.Now, nil
}

func (c *FakeClock) SetTime(hour, minute, second int) error {
	c.TimeSets = append(c.TimeSets, [3]int{hour, minute, second})
	c.Now.Hour, c.Now.Minute, c.Now.Second = hour, minute, second
	return nil
}

func (c *FakeClock) SetDate(dow, day, month, year int) error {
	c.DateSets = append(c.DateSets, [4]int{dow, day, month, year})
	c.Now.Dow, c.Now.Day, c.Now.Month, c.Now.Year = dow, day, month, year
	return nil
}
