// Package service installs `researchhub serve` as a macOS launchd agent.
package service

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	Label          = "com.researchhub.serve"
	DefaultBinPath = "/usr/local/bin/researchhub"
)

// Install describes where the service binary, config and logs live.
type Install struct {
	BinPath    string // where the binary is copied to
	ConfigPath string // passed as --config; empty uses the default search
	WorkDir    string
	LogDir     string
	Out        io.Writer
}

// Defaults fills unset paths: the binary goes to /usr/local/bin, logs to
// ~/Library/Logs, and the working directory is the current one.
func (in Install) Defaults() Install {
	home, _ := os.UserHomeDir()
	if in.BinPath == "" {
		in.BinPath = DefaultBinPath
	}
	if in.LogDir == "" {
		in.LogDir = filepath.Join(home, "Library", "Logs")
	}
	if in.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			in.WorkDir = wd
		}
	}
	if in.ConfigPath != "" && !filepath.IsAbs(in.ConfigPath) {
		in.ConfigPath = filepath.Join(in.WorkDir, in.ConfigPath)
	}
	if in.Out == nil {
		in.Out = os.Stdout
	}
	return in
}

func plistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist")
}

func (in Install) stdoutLog() string { return filepath.Join(in.LogDir, "researchhub-stdout.log") }
func (in Install) stderrLog() string { return filepath.Join(in.LogDir, "researchhub-stderr.log") }

// Run copies the running binary into place, writes the plist and loads it.
func (in Install) Run() error {
	in = in.Defaults()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	if exe != in.BinPath {
		data, err := os.ReadFile(exe)
		if err != nil {
			return fmt.Errorf("reading binary: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(in.BinPath), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(in.BinPath), err)
		}
		if err := os.WriteFile(in.BinPath, data, 0o755); err != nil {
			return fmt.Errorf("copying binary to %s: %w", in.BinPath, err)
		}
		fmt.Fprintf(in.Out, "installed binary to %s\n", in.BinPath)
	}

	plist, err := in.renderPlist()
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}

	// Unload an existing agent first; errors mean it was not loaded.
	if _, err := os.Stat(plistPath()); err == nil {
		_ = launchctl("unload", plistPath())
	}
	if err := os.MkdirAll(filepath.Dir(plistPath()), 0o755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(plistPath(), []byte(plist), 0o644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	fmt.Fprintf(in.Out, "wrote plist to %s\n", plistPath())

	if err := launchctl("load", plistPath()); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	fmt.Fprintln(in.Out, "service loaded and will start on login")
	return nil
}

// Uninstall unloads and removes the plist and the installed binary.
func Uninstall(binPath string, out io.Writer) error {
	if binPath == "" {
		binPath = DefaultBinPath
	}
	if _, err := os.Stat(plistPath()); err == nil {
		if err := launchctl("unload", plistPath()); err != nil {
			fmt.Fprintf(out, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(plistPath()); err != nil {
			return fmt.Errorf("removing plist: %w", err)
		}
		fmt.Fprintf(out, "removed %s\n", plistPath())
	}
	if _, err := os.Stat(binPath); err == nil {
		if err := os.Remove(binPath); err != nil {
			return fmt.Errorf("removing binary: %w", err)
		}
		fmt.Fprintf(out, "removed %s\n", binPath)
	}
	fmt.Fprintln(out, "uninstalled")
	return nil
}

func Start() error { return launchctl("start", Label) }
func Stop() error  { return launchctl("stop", Label) }

// Status prints launchd's view of the agent.
func Status(out io.Writer) error {
	cmd := exec.Command("launchctl", "list", Label)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(out, "service is not loaded")
	}
	return nil
}

// Logs follows both log files until interrupted.
func (in Install) Logs() error {
	in = in.Defaults()
	cmd := exec.Command("tail", "-f", in.stdoutLog(), in.stderrLog())
	cmd.Stdout = in.Out
	cmd.Stderr = in.Out
	return cmd.Run()
}

func launchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>serve</string>
{{- if .ConfigPath}}
		<string>--config</string>
		<string>{{.ConfigPath}}</string>
{{- end}}
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

func (in Install) renderPlist() (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, map[string]string{
		"Label":      Label,
		"BinPath":    in.BinPath,
		"ConfigPath": in.ConfigPath,
		"WorkDir":    in.WorkDir,
		"StdoutLog":  in.stdoutLog(),
		"StderrLog":  in.stderrLog(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
