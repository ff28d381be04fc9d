package version

import (
	"runtime/debug"
	"strings"
	"sync"
)

// ModulePath is the import path of this module.
const ModulePath = "github.com/kbukum/seqkit"

// Set at build time using -ldflags.
var (
	Version   = ""
	GitCommit = ""
)

const devVersion = "dev"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	IsDirty   bool   `json:"is_dirty"`
	GoVersion string `json:"go_version,omitempty"`
}

// String returns version[-commit][-dirty].
func (i Info) String() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// IsRelease reports whether the build carries a tagged version.
func (i Info) IsRelease() bool {
	return i.Version != devVersion && !i.IsDirty && !strings.Contains(i.Version, "-0.")
}

var cached = sync.OnceValue(func() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		bi = nil
	}
	return resolve(bi, Version, GitCommit)
})

// Get returns the build information. It is computed once.
func Get() Info {
	return cached()
}

// Short returns Get().String().
func Short() string {
	return Get().String()
}

// resolve picks the version from ldflags first, then from the seqkit
// module entry of the build info, and falls back to "dev".
func resolve(bi *debug.BuildInfo, ldVersion, ldCommit string) Info {
	info := Info{Version: ldVersion, GitCommit: shortCommit(ldCommit)}
	if bi == nil {
		if info.Version == "" {
			info.Version = devVersion
		}
		return info
	}

	info.GoVersion = bi.GoVersion
	if info.Version == "" {
		info.Version = moduleVersion(bi)
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		}
	}
	return info
}

func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == ModulePath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path != ModulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		if dep.Version != "" {
			return dep.Version
		}
	}
	return devVersion
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
