package platform

import "testing"

func lookupIn(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

type fakeProbe struct {
	browser bool
	ua      string
}

func (p fakeProbe) Browser() bool     { return p.browser }
func (p fakeProbe) UserAgent() string { return p.ua }

func TestDetectCLI(t *testing.T) {
	for _, key := range []string{"NODE", "SHELL", "TERM", "PATH"} {
		f := Detect(lookupIn(map[string]string{key: "x"}), fakeProbe{})
		if !f.CLI {
			t.Errorf("expected CLI detection for env key %s", key)
		}
		if got := f.Active(); got != RuntimeCLI {
			t.Errorf("Active() = %q, want cli", got)
		}
	}
}

func TestDetectBrowser(t *testing.T) {
	f := Detect(lookupIn(nil), fakeProbe{browser: true})
	if !f.Browser || f.XApp {
		t.Fatalf("unexpected flags: %+v", f)
	}
	if got := f.Active(); got != RuntimeBrowser {
		t.Errorf("Active() = %q, want browser", got)
	}
}

func TestDetectXApp(t *testing.T) {
	f := Detect(lookupIn(nil), fakeProbe{browser: true, ua: "Mozilla/5.0 (Linux; Android) XUMM/XAPP/2.3"})
	if !f.XApp {
		t.Fatal("expected xapp detection from user agent marker")
	}
	if !f.Browser {
		t.Fatal("xapp implies browser")
	}
	if got := f.Active(); got != RuntimeXApp {
		t.Errorf("Active() = %q, want xapp", got)
	}
}

func TestXAppRequiresBrowser(t *testing.T) {
	f := Detect(lookupIn(map[string]string{"PATH": "/bin"}), fakeProbe{browser: false, ua: "xumm/xapp"})
	if f.XApp {
		t.Fatal("xapp must not be detected outside a browser context")
	}
}

func TestActivePrecedence(t *testing.T) {
	// The env indicators are usually present alongside a browser host;
	// browser wins over cli, xapp wins over both.
	f := Flags{CLI: true, Browser: true}
	if got := f.Active(); got != RuntimeBrowser {
		t.Errorf("Active() = %q, want browser", got)
	}
	f.XApp = true
	if got := f.Active(); got != RuntimeXApp {
		t.Errorf("Active() = %q, want xapp", got)
	}
}

func TestDetectNone(t *testing.T) {
	f := Detect(lookupIn(nil), fakeProbe{})
	if f.CLI || f.Browser || f.XApp {
		t.Fatalf("unexpected flags: %+v", f)
	}
	if got := f.Active(); got != RuntimeNone {
		t.Errorf("Active() = %q, want none", got)
	}
}
