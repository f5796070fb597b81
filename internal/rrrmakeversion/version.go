// Package rrrmakeversion reports the version of this module as best as can
// reasonably be determined, for the CLI's --version output and log lines.
// Grounded on cuelang.org/go/internal/cueversion.ModuleVersion, trimmed to
// drop the HTTP transport/User-Agent half: this module has no outbound
// HTTP client to tag.
package rrrmakeversion

import (
	"runtime/debug"
	"sync"
)

const modulePath = "github.com/rrrmake/rrrmake"

// ModuleVersion returns the version of this module, determined from the
// running binary's embedded build info.
func ModuleVersion() string {
	return moduleVersionOnce()
}

var moduleVersionOnce = sync.OnceValue(func() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "(no-build-info)"
	}
	if m := findModule(bi); m != nil {
		return m.Version
	}
	return "(no-module)"
})

func findModule(bi *debug.BuildInfo) *debug.Module {
	if bi.Main.Path == modulePath {
		return &bi.Main
	}
	for _, dep := range bi.Deps {
		if dep.Replace != nil && dep.Replace.Path == modulePath {
			return dep.Replace
		}
		if dep.Path == modulePath {
			return dep
		}
	}
	return nil
}
