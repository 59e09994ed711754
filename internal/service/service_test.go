package service

import (
	"strings"
	"testing"
)

func TestRenderPlist(t *testing.T) {
	in := Install{
		BinPath:    "/opt/bin/researchhub",
		ConfigPath: "researchhub.yaml",
		WorkDir:    "/srv/research",
		LogDir:     "/var/log",
	}.Defaults()

	got, err := in.renderPlist()
	if err != nil {
		t.Fatalf("renderPlist: %v", err)
	}
	for _, want := range []string{
		"<string>" + Label + "</string>",
		"<string>/opt/bin/researchhub</string>\n\t\t<string>serve</string>\n\t\t<string>--config</string>\n\t\t<string>/srv/research/researchhub.yaml</string>\n\t</array>",
		"<string>/srv/research</string>",
		"<string>/var/log/researchhub-stderr.log</string>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("plist missing %q:\n%s", want, got)
		}
	}
}

func TestRenderPlist_NoConfig(t *testing.T) {
	in := Install{BinPath: "/b", WorkDir: "/w", LogDir: "/l"}.Defaults()
	got, err := in.renderPlist()
	if err != nil {
		t.Fatalf("renderPlist: %v", err)
	}
	if strings.Contains(got, "--config") {
		t.Errorf("unexpected --config in plist:\n%s", got)
	}
	if !strings.Contains(got, "<string>serve</string>\n\t</array>") {
		t.Errorf("serve should be the last argument:\n%s", got)
	}
}
