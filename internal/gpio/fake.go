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

package gpio

// State is one pair of relay levels.
type State struct {
	Boiler bool
	Pump   bool
}

// FakeOutputs records every Set call. Used in tests and on hosts
// without GPIO hardware.
type FakeOutputs struct {
	Current State
	History []State
	SetErr  error
	Closed  bool
}

func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

func (f *FakeOutputs) Set(boiler, pump bool) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.Current = State{Boiler: boiler, Pump: pump}
	f.History = append(f.History, f.Current)
	return nil
}

func (f *FakeOutputs) Close() error {
	f.Current = State{}
	f.Closed = true
	return nil
}
