package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}

func TestEngineLiteralAndRegexRules(t *testing.T) {
	t.Parallel()

	path := writeRules(t, `
# literal
plaintiff attorney => plaintiff's attorney
# regex
s/\b[Ss]ection\s+(\d+)\b/§$1/g
`)

	engine, err := NewEngine(path, 30)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("Plaintiff attorney cites Section 840")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "plaintiff's attorney cites §840" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineIteratesUntilStable(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "a => b\nb => c\n")

	engine, err := NewEngine(path, 5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "c" {
		t.Fatalf("expected c, got %q", output)
	}
}

func TestEngineLiteralRuleStartingWithS(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "spousal support claim => claim for spousal support\n")

	engine, err := NewEngine(path, 30)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("spousal support claim granted")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "claim for spousal support granted" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineMissingFileIsPassThrough(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(filepath.Join(t.TempDir(), "absent.rules"), 10)
	if err != nil {
		t.Fatalf("expected pass-through engine, got error: %v", err)
	}

	output, err := engine.Apply("unchanged")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "unchanged" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestRegexRuleWithoutGlobalReplacesFirstMatchOnly(t *testing.T) {
	t.Parallel()

	r, err := parseRegexRule(`s/foo/bar/`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	output, changed := r.apply("foo foo")
	if !changed {
		t.Fatalf("expected changed=true")
	}
	if output != "bar foo" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestRegexRuleCaseSensitiveByDefault(t *testing.T) {
	t.Parallel()

	r, err := parseRegexRule(`s/foo/bar/g`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if output, changed := r.apply("FOO foo"); changed && output != "FOO bar" {
		t.Fatalf("unexpected output: %q", output)
	} else if !changed {
		t.Fatalf("expected lowercase match to be replaced")
	}
}

func TestRegexRuleInsensitiveFlag(t *testing.T) {
	t.Parallel()

	r, err := parseRegexRule(`s/foo/bar/gi`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	output, changed := r.apply("FOO foo")
	if !changed || output != "bar bar" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestParseRegexRuleUnsupportedFlag(t *testing.T) {
	t.Parallel()

	if _, err := parseRegexRule(`s/foo/bar/x`); err == nil {
		t.Fatalf("expected unsupported flag error")
	}
}

func TestParseRulesUnsupportedLine(t *testing.T) {
	t.Parallel()

	if _, err := parseRules("not-a-rule"); err == nil {
		t.Fatalf("expected unsupported rule format error")
	}
}
