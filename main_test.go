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

package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "rocketmod_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "rocketmod_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "rocketmod_test")
	cmd := exec.Command(binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// copyProject copies a fixture project into a temp dir, since builds
// rewrite its artifacts.
func copyProject(t *testing.T, name string) string {
	t.Helper()
	src := filepath.Join("testdata", "cli", name)
	dst := t.TempDir()
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("copying fixture %s: %v", name, err)
	}
	return dst
}

const widgetsArtifact = "isopacks/vendor_widgets/web.browser/packages/vendor_widgets.js"

type sectionJSON struct {
	Name       string `json:"name"`
	BodyOffset int    `json:"bodyOffset"`
	BodyLength int    `json:"bodyLength"`
}

func inspectSections(t *testing.T, artifact string) map[string]sectionJSON {
	t.Helper()
	stdout, stderr, code := runCLI(t, "inspect", "--format", "json", artifact)
	if code != 0 {
		t.Fatalf("inspect: exit code %d\nstderr: %s", code, stderr)
	}
	var sections []sectionJSON
	if err := json.Unmarshal([]byte(stdout), &sections); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	out := map[string]sectionJSON{}
	for _, s := range sections {
		out[s.Name] = s
	}
	return out
}

func TestInspect(t *testing.T) {
	artifact := filepath.Join("testdata", "cli", "widgets", filepath.FromSlash(widgetsArtifact))
	sections := inspectSections(t, artifact)
	for _, name := range []string{"widgets.module.js", "lib/helper.js", "lib/legacy.js"} {
		if _, ok := sections["packages/vendor:widgets/"+name]; !ok {
			t.Errorf("section for %s missing: %v", name, sections)
		}
	}

	stdout, stderr, code := runCLI(t, "inspect", "--section", "packages/vendor:widgets/lib/legacy.js", artifact)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "Widgets = {};") {
		t.Errorf("section body = %q", stdout)
	}

	_, _, code = runCLI(t, "inspect", "--section", "packages/vendor:widgets/missing.js", artifact)
	if code == 0 {
		t.Error("Expected failure for a missing section")
	}
}

func TestBuild(t *testing.T) {
	dir := copyProject(t, "widgets")
	artifact := filepath.Join(dir, filepath.FromSlash(widgetsArtifact))

	stdout, stderr, code := runCLI(t, "build", "--project", dir, "--report", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var report struct {
		Platforms []struct {
			Platform string   `json:"platform"`
			Written  []string `json:"written"`
			Entries  []string `json:"entries"`
		} `json:"platforms"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Failed to parse report: %v\nstdout: %s", err, stdout)
	}
	if len(report.Platforms) != 1 || report.Platforms[0].Platform != "web.browser" {
		t.Fatalf("report = %+v", report)
	}
	if got := report.Platforms[0].Entries; len(got) != 1 || !strings.HasSuffix(got[0], "/widgets.module.js") {
		t.Errorf("entries = %v", got)
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatal(err)
	}
	sections := inspectSections(t, artifact)
	entry := sections["packages/vendor:widgets/widgets.module.js"]
	body := string(data[entry.BodyOffset : entry.BodyOffset+entry.BodyLength])
	if !strings.Contains(body, "widgets-helper") {
		t.Errorf("entry section lacks the bundle:\n%s", body)
	}
	if helper := sections["packages/vendor:widgets/lib/helper.js"]; helper.BodyLength != 0 {
		t.Errorf("bundled helper left %d bytes in its section", helper.BodyLength)
	}

	var sidecar struct {
		Resources []struct {
			Length int `json:"length"`
		} `json:"resources"`
	}
	sc, err := os.ReadFile(filepath.Join(dir, "isopacks", "vendor_widgets", "web.browser.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(sc, &sidecar); err != nil {
		t.Fatal(err)
	}
	if sidecar.Resources[0].Length != len(data) {
		t.Errorf("sidecar length %d, artifact %d bytes", sidecar.Resources[0].Length, len(data))
	}

	// A second build restages nothing.
	stdout, stderr, code = runCLI(t, "build", "--project", dir, "--report", "json")
	if code != 0 {
		t.Fatalf("second build: exit code %d\nstderr: %s", code, stderr)
	}
	var second struct {
		Platforms []struct {
			Written []string `json:"written"`
			Skipped int      `json:"skipped"`
		} `json:"platforms"`
	}
	if err := json.Unmarshal([]byte(stdout), &second); err != nil {
		t.Fatal(err)
	}
	if len(second.Platforms[0].Written) != 0 || second.Platforms[0].Skipped == 0 {
		t.Errorf("second build wrote %v, skipped %d", second.Platforms[0].Written, second.Platforms[0].Skipped)
	}
}

func TestClean(t *testing.T) {
	dir := copyProject(t, "widgets")
	if _, stderr, code := runCLI(t, "build", "--project", dir, "--quiet"); code != 0 {
		t.Fatalf("build: exit code %d\nstderr: %s", code, stderr)
	}
	staging := filepath.Join(dir, ".rocketmod")
	if _, err := os.Stat(filepath.Join(staging, ".fingerprints.cbor")); err != nil {
		t.Fatalf("fingerprint store not saved: %v", err)
	}

	if _, stderr, code := runCLI(t, "clean", "--project", dir); code != 0 {
		t.Fatalf("clean: exit code %d\nstderr: %s", code, stderr)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging tree still present: %v", err)
	}
}

func TestStatus(t *testing.T) {
	dir := copyProject(t, "widgets")
	stdout, stderr, code := runCLI(t, "status", "--project", dir, "--format", "json")
	if code != 0 {
		t.Fatalf("status before build: exit code %d\nstderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Errorf("status before build = %q, want []", stdout)
	}

	if _, stderr, code := runCLI(t, "build", "--project", dir, "--quiet"); code != 0 {
		t.Fatalf("build: exit code %d\nstderr: %s", code, stderr)
	}
	stdout, stderr, code = runCLI(t, "status", "--project", dir, "--format", "json")
	if code != 0 {
		t.Fatalf("status: exit code %d\nstderr: %s", code, stderr)
	}
	var statuses []struct {
		Platform string `json:"platform"`
		Packages []struct {
			Identity    string `json:"identity"`
			StagingName string `json:"stagingName"`
		} `json:"packages"`
	}
	if err := json.Unmarshal([]byte(stdout), &statuses); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if len(statuses) != 1 || statuses[0].Platform != "web.browser" {
		t.Fatalf("statuses = %+v", statuses)
	}
	pkgs := statuses[0].Packages
	if len(pkgs) != 1 || pkgs[0].Identity != "vendor:widgets" || pkgs[0].StagingName != "pkg-vendor_cwidgets" {
		t.Errorf("packages = %+v", pkgs)
	}
}

func TestBuildWithoutProject(t *testing.T) {
	_, stderr, code := runCLI(t, "build", "--project", t.TempDir())
	if code == 0 {
		t.Fatal("Expected failure without a project file")
	}
	if !strings.Contains(stderr, "no rocketmod project file") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestBuildUnknownPlatform(t *testing.T) {
	dir := copyProject(t, "widgets")
	_, stderr, code := runCLI(t, "build", "--project", dir, "--platform", "web.cordova")
	if code == 0 {
		t.Fatal("Expected failure for an unconfigured platform")
	}
	if !strings.Contains(stderr, "web.cordova") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "rocketmod ") {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, _ = runCLI(t, "version", "--format", "json")
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if info["version"] == "" {
		t.Error("version missing from JSON output")
	}
}
