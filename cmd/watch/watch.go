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

// Package watch provides the watch command for rocketmod.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/rocketmod/build"
	rfs "bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/cli"
	"bennypowers.dev/rocketmod/internal/logging"
)

// Cmd is the watch command that rebuilds whenever package sources change.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild when package sources change",
	Long: `Run a build pass, then watch every package directory and run another
pass whenever files change. Failed passes are logged and watching continues.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringSlice("platform", nil, "Platforms to build (default: all configured)")
	Cmd.Flags().Duration("debounce", 200*time.Millisecond, "Quiet period before a rebuild")

	_ = viper.BindPFlag("watch.platform", Cmd.Flags().Lookup("platform"))
	_ = viper.BindPFlag("watch.debounce", Cmd.Flags().Lookup("debounce"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := rfs.NewOSFileSystem()
	logger := cli.Logger()

	proj, err := cli.Project(osfs)
	if err != nil {
		return err
	}
	platforms, err := cli.Platforms(proj, viper.GetStringSlice("watch.platform"))
	if err != nil {
		return err
	}
	pipeline, err := proj.Pipeline(logger)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()
	for _, dir := range proj.PackageDirs() {
		if err := addTree(watcher, dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pass := func(first bool) {
		pkgs, err := proj.Packages()
		if err != nil {
			logger.Warning("reading packages: %v", err)
			return
		}
		if _, err := pipeline.Run(ctx, build.PassContext{FirstPass: first, Platforms: platforms}, pkgs); err != nil {
			logger.Warning("build failed: %v", err)
		}
	}
	return loop(ctx, watcher, viper.GetDuration("watch.debounce"), logger, pass)
}

// loop runs pass once with first set, then again after every burst of
// relevant events has been quiet for debounce.
func loop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, logger logging.Logger, pass func(first bool)) error {
	pass(true)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if skipped(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil && logger != nil {
						logger.Warning("watching %s: %v", ev.Name, err)
					}
				}
			}
			if logger != nil {
				logger.Debug("%s %s", ev.Op, ev.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warning("watcher: %v", err)
			}
		case <-fire:
			fire = nil
			pass(false)
		}
	}
}

// skipped reports whether changes to name never affect a build. Hidden
// directories and node_modules are never watched, so only the base name
// needs checking.
func skipped(name string) bool {
	base := filepath.Base(name)
	return base == "node_modules" || strings.HasPrefix(base, ".")
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && skipped(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
