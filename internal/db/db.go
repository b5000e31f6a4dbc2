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

// Package db keeps the telemetry log: one row per sensor reading each
// tick and one per actuator transition. The log is an observation aid;
// failures are reported to the caller and never stop the control loop.
package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at TIMESTAMP NOT NULL,
	sensor TEXT NOT NULL,
	zone INTEGER NOT NULL,
	value INTEGER NOT NULL,
	setpoint INTEGER NOT NULL,
	demand INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at TIMESTAMP NOT NULL,
	boiler INTEGER NOT NULL,
	pump INTEGER NOT NULL
);`

type Log struct {
	db *sqlx.DB
}

// Open opens the log database, creating tables if needed.
func Open(path string) (*Log, error) {
	d, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open telemetry db %s", path)
	}
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, errors.Wrapf(err, "ping telemetry db %s", path)
	}
	if _, err := d.Exec(schema); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "create telemetry schema")
	}
	return &Log{db: d}, nil
}

// NewLog wraps an existing connection. Used by tests.
func NewLog(d *sqlx.DB) *Log {
	return &Log{db: d}
}

// RecordReading logs one sensor reading. Value is in hundredths of a
// degree, setpoint in tenths.
func (l *Log) RecordReading(at time.Time, sensor string, zone, value, setpoint int, demand bool) error {
	_, err := l.db.Exec(
		`INSERT INTO readings (at, sensor, zone, value, setpoint, demand) VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC(), sensor, zone, value, setpoint, boolInt(demand),
	)
	return errors.Wrap(err, "record reading")
}

// RecordTransition logs an actuator state change.
func (l *Log) RecordTransition(at time.Time, boiler, pump bool) error {
	_, err := l.db.Exec(
		`INSERT INTO transitions (at, boiler, pump) VALUES (?, ?, ?)`,
		at.UTC(), boolInt(boiler), boolInt(pump),
	)
	return errors.Wrap(err, "record transition")
}

func (l *Log) Close() error {
	return l.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
