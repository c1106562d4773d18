// seehuhn.de/go/meshrender - rendering and picking for unstructured meshes
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"seehuhn.de/go/meshrender"
)

type option struct {
	name, usage, shorthand string
	defaultVal             any
	flagsets               []*pflag.FlagSet
}

// bindOptions creates the flags for all options and connects them to v.
// An option listed for several flag sets is created in the first one and
// shared with the others.
func bindOptions(v *viper.Viper, options []option) {
	v.SetEnvPrefix("MESHRENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, opt := range options {
		for i, set := range opt.flagsets {
			if i != 0 {
				set.AddFlag(opt.flagsets[0].Lookup(opt.name))
				continue
			}
			switch val := opt.defaultVal.(type) {
			case string:
				set.StringP(opt.name, opt.shorthand, val, opt.usage)
			case bool:
				set.BoolP(opt.name, opt.shorthand, val, opt.usage)
			case int:
				set.IntP(opt.name, opt.shorthand, val, opt.usage)
			case []int:
				set.IntSliceP(opt.name, opt.shorthand, val, opt.usage)
			case float64:
				set.Float64P(opt.name, opt.shorthand, val, opt.usage)
			default:
				panic(fmt.Sprintf("option %s: invalid type %T", opt.name, val))
			}
			v.BindPFlag(opt.name, set.Lookup(opt.name))
		}
	}
}

// readConfig reads the configuration file, if one was given.
func readConfig(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("meshrender: problem reading configuration file: %w", err)
		}
	}
	return nil
}

// newLogger returns a logger writing text lines at the configured level.
func newLogger(v *viper.Viper) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("meshrender: %w", err)
	}
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(level)
	return log, nil
}

// plotConfig converts the settings to a meshrender.Config.
func plotConfig(v *viper.Viper) (meshrender.Config, error) {
	var cfg meshrender.Config
	var err error
	fail := func(name string, e error) {
		if err == nil && e != nil {
			err = fmt.Errorf("meshrender: option %s: %w", name, e)
		}
	}

	var e error
	cfg.Palette = v.GetString("palette")
	cfg.Scale = v.GetString("scale")
	cfg.Threshold = v.GetString("threshold")
	cfg.Colors, e = cast.ToIntE(v.Get("colors"))
	fail("colors", e)
	cfg.LogBase, e = cast.ToFloat64E(v.Get("log-base"))
	fail("log-base", e)
	cfg.Borders, e = cast.ToBoolE(v.Get("borders"))
	fail("borders", e)
	cfg.BorderCutoff, e = cast.ToFloat64E(v.Get("border-cutoff"))
	fail("border-cutoff", e)
	cfg.HoursPerStep, e = cast.ToFloat64E(v.Get("hours-per-step"))
	fail("hours-per-step", e)
	cfg.Canvas, e = cast.ToIntE(v.Get("canvas"))
	fail("canvas", e)
	cfg.MaxZoom, e = cast.ToFloat64E(v.Get("max-zoom"))
	fail("max-zoom", e)
	cfg.UpdateSpan, e = cast.ToDurationE(v.Get("update-span"))
	fail("update-span", e)
	cfg.Delay, e = cast.ToDurationE(v.Get("delay"))
	fail("delay", e)
	if err != nil {
		return meshrender.Config{}, err
	}
	return cfg, nil
}
