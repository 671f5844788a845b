/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package workdir switches the process working directory for the duration
// of a call.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// The working directory is process-wide, so switches are serialized.
var mu sync.Mutex

// Within runs fn with the working directory set to dir and restores the
// previous directory afterwards, also when fn fails or panics.
func Within(dir string, fn func() error) (err error) {
	mu.Lock()
	defer mu.Unlock()

	prev, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("reading working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("entering %s: %w", dir, err)
	}
	defer func() {
		if cerr := os.Chdir(prev); cerr != nil {
			err = errors.Join(err, fmt.Errorf("restoring working directory %s: %w", prev, cerr))
		}
	}()
	return fn()
}
