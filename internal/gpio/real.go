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

//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// chipOutputs drives the relays through the Linux GPIO character
// device. Both lines are requested as outputs, initially low.
type chipOutputs struct {
	chip   *gpiocdev.Chip
	boiler *gpiocdev.Line
	pump   *gpiocdev.Line
}

// NewChipOutputs requests the boiler and pump lines on the given chip.
func NewChipOutputs(chip string, boilerLine, pumpLine int) (Outputs, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, errors.Wrapf(err, "open gpio chip %s", chip)
	}

	boiler, err := c.RequestLine(boilerLine, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, errors.Wrapf(err, "request boiler line %d", boilerLine)
	}

	pump, err := c.RequestLine(pumpLine, gpiocdev.AsOutput(0))
	if err != nil {
		boiler.Close()
		c.Close()
		return nil, errors.Wrapf(err, "request pump line %d", pumpLine)
	}

	return &chipOutputs{chip: c, boiler: boiler, pump: pump}, nil
}

func (o *chipOutputs) Set(boiler, pump bool) error {
	if err := o.boiler.SetValue(levelOf(boiler)); err != nil {
		return errors.Wrap(err, "set boiler line")
	}
	if err := o.pump.SetValue(levelOf(pump)); err != nil {
		return errors.Wrap(err, "set pump line")
	}
	return nil
}

// Close drops both relays before releasing the lines so a controller
// restart never leaves the boiler latched on.
func (o *chipOutputs) Close() error {
	var errs []error
	if err := o.Set(false, false); err != nil {
		errs = append(errs, err)
	}
	if err := o.boiler.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close boiler line"))
	}
	if err := o.pump.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close pump line"))
	}
	if err := o.chip.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close chip"))
	}
	if len(errs) > 0 {
		return errors.Errorf("close outputs: %v", errs)
	}
	return nil
}

func levelOf(on bool) int {
	if on {
		return 1
	}
	return 0
}
