package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Say which build is running.
 *
 * Description:	Release builds stamp a version at link time:
 *
 *		go build -ldflags "-X github.com/doismellburning/irblaster/src.Version=1.0" ./cmd/...
 *
 *		Everything else comes from the VCS settings the Go
 *		toolchain records in the binary.  A board in the field
 *		logs this line at start up so that a capture file or a
 *		bug report can be tied to the exact firmware.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
)

var Version string

type BuildInfo struct {
	Version   string
	Revision  string // Short commit hash, "unknown" outside a checkout.
	Time      string
	Modified  string // "yes", "no" or "unknown".
	GoVersion string
	Deps      []*debug.Module
}

// newBuildInfo reads bi, which may be nil.
func newBuildInfo(bi *debug.BuildInfo) BuildInfo {
	var info = BuildInfo{
		Version:   Version,
		Revision:  "unknown",
		Time:      "unknown",
		Modified:  "unknown",
		GoVersion: "unknown",
		Deps:      nil,
	}

	if info.Version == "" {
		info.Version = "dev"
	}

	if bi == nil {
		return info
	}

	info.GoVersion = bi.GoVersion
	info.Deps = bi.Deps

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value[:min(len(s.Value), 12)]
		case "vcs.time":
			info.Time = s.Value
		case "vcs.modified":
			if modified, err := strconv.ParseBool(s.Value); err == nil {
				info.Modified = IfThenElse(modified, "yes", "no")
			}
		}
	}

	return info
}

func readBuildInfo() BuildInfo {
	var bi, _ = debug.ReadBuildInfo()

	return newBuildInfo(bi)
}

func (b BuildInfo) String() string {
	var revision = b.Revision
	if b.Modified == "yes" {
		revision += "+modified"
	}

	return fmt.Sprintf("irblaster %s (revision %s, built %s, %s)", b.Version, revision, b.Time, b.GoVersion)
}

// Write prints the summary line and, if withDeps, the module list.
func (b BuildInfo) Write(w io.Writer, withDeps bool) {
	fmt.Fprintln(w, b.String())

	if !withDeps {
		return
	}

	for _, d := range b.Deps {
		fmt.Fprintf(w, "  %-45s %s\n", d.Path, d.Version)
	}
}
