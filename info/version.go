// Package info describes the running build: program, version, commit and
// the storage engines compiled in.
package info

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/safing/occbase/database/storage"
)

const devVersion = "dev build"

// engineModules maps storage types to the module implementing the engine.
var engineModules = map[string]string{
	"sqlite": "modernc.org/sqlite",
	"bbolt":  "go.etcd.io/bbolt",
	"badger": "github.com/dgraph-io/badger",
}

var (
	name    = "occbase"
	version string
	license = "unknown"

	build     *debug.BuildInfo
	buildOnce sync.Once
)

// Info describes the running build.
type Info struct {
	Name     string
	Version  string
	License  string
	Commit   string
	Dirty    bool
	Go       string
	Platform string
	Storages []Storage
}

// Storage is a registered storage type. Module and Version name the engine
// it is built on, they are empty for built-in storages.
type Storage struct {
	Type    string
	Module  string
	Version string
}

// Set sets the program name, version and license. An empty version uses the
// module version of the build.
func Set(setName, setVersion, setLicense string) {
	name = setName
	version = setVersion
	license = setLicense
}

func buildInfo() *debug.BuildInfo {
	buildOnce.Do(func() {
		var ok bool
		build, ok = debug.ReadBuildInfo()
		if !ok {
			build = &debug.BuildInfo{}
		}
	})
	return build
}

func setting(key string) string {
	for _, s := range buildInfo().Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func moduleVersion(path string) string {
	for _, dep := range buildInfo().Deps {
		if dep.Path == path {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}

// GetInfo returns information about the running build. Storage types are
// read from the storage registry on every call.
func GetInfo() *Info {
	i := &Info{
		Name:     name,
		Version:  Version(),
		License:  license,
		Commit:   setting("vcs.revision"),
		Dirty:    setting("vcs.modified") == "true",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	for _, storageType := range storage.Types() {
		s := Storage{Type: storageType}
		if module, ok := engineModules[storageType]; ok {
			s.Module = module
			s.Version = moduleVersion(module)
		}
		i.Storages = append(i.Storages, s)
	}
	return i
}

// Version returns the version, marked with a star for builds with
// uncommitted changes.
func Version() string {
	v := version
	if v == "" {
		v = buildInfo().Main.Version
	}
	if v == "" || v == "(devel)" {
		v = devVersion
	}
	if setting("vcs.modified") == "true" {
		v += "*"
	}
	return v
}

// FullVersion returns a multi line description of the build.
func FullVersion() string {
	i := GetInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s, %s)\n", i.Name, i.Version, i.Go, i.Platform)
	if i.Commit != "" {
		fmt.Fprintf(&b, "commit %s\n", i.Commit)
	}
	if len(i.Storages) > 0 {
		b.WriteString("storages:\n")
		for _, s := range i.Storages {
			if s.Module == "" {
				fmt.Fprintf(&b, "  %s\n", s.Type)
				continue
			}
			fmt.Fprintf(&b, "  %s (%s %s)\n", s.Type, s.Module, s.Version)
		}
	}
	fmt.Fprintf(&b, "licensed under %s", i.License)
	return b.String()
}
