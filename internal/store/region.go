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
	"io"
	"os"

	"github.com/pkg/errors"
)

// Region is a byte-addressable non-volatile memory. Writes are
// write-through: a record is committed once every byte write returned.
// No transactional guarantee is made; power loss mid-record is an
// accepted corruption risk.
type Region interface {
	ReadByte(off int) byte
	WriteByte(off int, v byte) error
	Size() int
}

// FileRegion keeps the region image in memory and mirrors every byte
// write to the backing file.
type FileRegion struct {
	f   *os.File
	buf []byte
}

// OpenFileRegion opens or creates the backing file and reads the image.
// A missing or short file is padded with zeroes, which every slot codec
// treats as unconfigured.
func OpenFileRegion(path string, size int) (*FileRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open store image %s", path)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, errors.Wrapf(err, "read store image %s", path)
	}

	if fi, err := f.Stat(); err == nil && fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "extend store image %s", path)
		}
	}

	return &FileRegion{f: f, buf: buf}, nil
}

func (r *FileRegion) ReadByte(off int) byte { return r.buf[off] }

func (r *FileRegion) WriteByte(off int, v byte) error {
	r.buf[off] = v
	if _, err := r.f.WriteAt([]byte{v}, int64(off)); err != nil {
		return errors.Wrapf(err, "write store byte at %d", off)
	}
	return nil
}

func (r *FileRegion) Size() int { return len(r.buf) }

func (r *FileRegion) Close() error { return r.f.Close() }

// MemRegion is a volatile Region used on the bench and in tests.
type MemRegion struct {
	buf []byte
}

func NewMemRegion(size int) *MemRegion {
	return &MemRegion{buf: make([]byte, size)}
}

func (r *MemRegion) ReadByte(off int) byte { return r.buf[off] }

func (r *MemRegion) WriteByte(off int, v byte) error {
	r.buf[off] = v
	return nil
}

func (r *MemRegion) Size() int { return len(r.buf) }
