// Package main — repository hygiene test that fails when credential-shaped
// strings are committed.
//
// tabinspect suite files carry chat webhook URLs, and a pasted-in real
// webhook is as good as a leaked password. Run this before pushing:
//
//	go test ./scripts/ -run TestRepoContainsNoSecrets -v
//
// Only text files are scanned; dot-directories, vendor/, and directories the
// Go toolchain ignores (underscore-prefixed) are not.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// leakPatterns maps a label used in failure output to the regex recognising
// that class of secret.
var leakPatterns = map[string]*regexp.Regexp{
	"slack webhook url": regexp.MustCompile(
		`https://hooks\.slack\.com/services/T[A-Z0-9]+/B[A-Z0-9]+/[A-Za-z0-9]{16,}`),
	"chat webhook assignment": regexp.MustCompile(
		`(?i)(webhook[_-]?url|chat_webhook)\s*[:=]\s*['"]?https?://[^\s'"]+/services/[A-Za-z0-9/_-]{24,}`),
	"token assignment (32+ chars)": regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|password|passwd|auth)\s*=\s*['"]?[A-Za-z0-9+/\-_]{32,}['"]?`),
	"github personal access token": regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
	"pem private key":              regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
}

// benign matches lines that look like secrets but are known placeholders:
// comments, test fixtures, env/template expansions, and defanged examples.
var benign = regexp.MustCompile(strings.Join([]string{
	`^\s*#`,
	`_test\.go`,
	`(?i)test-key|test-webhook|"test`,
	`(?i)your[-_](key|token|password)`,
	`\$\{[^}]+\}|\$[A-Z_]+`,
	`\{\{[^}]+\}\}`,
	`secrets\.[A-Z_]+`,
	`(?i)example|placeholder|redacted|changeme`,
	`[xX]{8,}|0{8,}`,
}, "|"))

// textExts are the extensions worth scanning. Extensionless files such as
// Makefile and Dockerfile are scanned too.
var textExts = map[string]bool{
	".go": true, ".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".env": true, ".sh": true, ".bash": true, ".csv": true, ".md": true, ".txt": true,
}

type finding struct {
	file  string
	line  int
	label string
	text  string
}

func (f finding) String() string {
	text := f.text
	if len(text) > 120 {
		text = text[:120] + "…"
	}
	return fmt.Sprintf("  %s:%d [%s]\n    %s", f.file, f.line, f.label, text)
}

func TestRepoContainsNoSecrets(t *testing.T) {
	root := moduleRoot(t)
	t.Logf("scanning %s", root)

	var findings []finding
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return nil // unreadable entries are not a leak
		case d.IsDir():
			name := d.Name()
			if name == "vendor" || strings.HasPrefix(name, "_") ||
				(strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(path)); ext != "" && !textExts[ext] {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		findings = append(findings, scanFile(path, rel)...)
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk: %v", walkErr)
	}

	if len(findings) > 0 {
		lines := make([]string, len(findings))
		for i, f := range findings {
			lines[i] = f.String()
		}
		t.Errorf("%d credential-shaped string(s) committed:\n\n%s\n\n"+
			"Rotate the credential and replace it with a placeholder.",
			len(findings), strings.Join(lines, "\n"))
	}
}

// scanFile reports every non-benign line of the file matching a leak pattern.
func scanFile(path, rel string) []finding {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []finding
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if benign.MatchString(line) {
			continue
		}
		for label, re := range leakPatterns {
			if re.MatchString(line) {
				out = append(out, finding{file: rel, line: n, label: label, text: line})
			}
		}
	}
	return out
}

// moduleRoot walks up from the package directory to the directory holding
// go.mod.
func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		next := filepath.Dir(dir)
		if next == dir {
			t.Fatal("no go.mod above the scripts directory")
		}
		dir = next
	}
}
