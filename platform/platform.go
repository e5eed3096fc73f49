// Package platform classifies the ambient execution context into one of
// three mutually exclusive runtimes: cli (a regular process), browser
// (a js/wasm page or a host reporting browser capabilities) and xapp
// (a browser context embedded in the Xumm mobile WebView).
//
// Detection runs once per process and is immutable afterwards. Tests and
// embedders can bypass ambient detection by constructing Flags directly
// or by supplying a custom Probe to Detect.
package platform

import (
	"os"
	"regexp"
	goruntime "runtime"
	"sync"
)

// Runtime names the active execution context.
type Runtime string

const (
	RuntimeNone    Runtime = ""
	RuntimeCLI     Runtime = "cli"
	RuntimeBrowser Runtime = "browser"
	RuntimeXApp    Runtime = "xapp"
)

// Flags holds the three independent detection booleans. In steady state
// exactly one runtime is operative: xapp implies browser, and xapp takes
// precedence over plain browser (see Active).
type Flags struct {
	CLI     bool
	Browser bool
	XApp    bool
}

// Active resolves the operative runtime. XApp wins over browser, browser
// wins over cli. RuntimeNone means no supported context was detected;
// flows requiring a runtime fail at bootstrap.
func (f Flags) Active() Runtime {
	switch {
	case f.XApp:
		return RuntimeXApp
	case f.Browser:
		return RuntimeBrowser
	case f.CLI:
		return RuntimeCLI
	}
	return RuntimeNone
}

// Probe reports browser-host characteristics that cannot be read from
// the process environment. The default probe treats js/wasm builds as
// browser contexts and reports no user agent.
type Probe interface {
	// Browser reports whether the host is a browser-like context.
	Browser() bool
	// UserAgent returns the host user-agent string, empty if unknown.
	UserAgent() string
}

// cliIndicators are the environment keys whose presence marks a regular
// shell/terminal process.
var cliIndicators = []string{"NODE", "SHELL", "TERM", "PATH"}

var xappUserAgent = regexp.MustCompile(`(?i)xumm/xapp`)

type hostProbe struct{}

func (hostProbe) Browser() bool     { return goruntime.GOOS == "js" }
func (hostProbe) UserAgent() string { return "" }

// Detect classifies the context described by the given environment
// lookup and probe. It is deterministic and has no side effects.
func Detect(lookup func(string) (string, bool), probe Probe) Flags {
	var f Flags
	for _, key := range cliIndicators {
		if _, ok := lookup(key); ok {
			f.CLI = true
			break
		}
	}
	f.Browser = probe.Browser()
	f.XApp = f.Browser && xappUserAgent.MatchString(probe.UserAgent())
	return f
}

var current = sync.OnceValue(func() Flags {
	return Detect(os.LookupEnv, hostProbe{})
})

// Current returns the process-wide detection result, computed on first
// use and cached for the lifetime of the process.
func Current() Flags {
	return current()
}
