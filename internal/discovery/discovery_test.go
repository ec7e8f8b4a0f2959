package discovery

import "testing"

func TestStatFieldsSplitsAfterCommWithSpaces(t *testing.T) {
	stat := "1234 (some (weird) comm) S 1 1234 1234 0 -1 4194560 100 0 0 0 10 5 0 0 20 0 1 0 987654321 0 0"
	fields, ok := statFields(stat)
	if !ok {
		t.Fatal("expected statFields to succeed")
	}
	if fields[0] != "S" {
		t.Errorf("fields[0] (state) = %q, want S", fields[0])
	}
	if fields[1] != "1" {
		t.Errorf("fields[1] (ppid) = %q, want 1", fields[1])
	}
}

func TestStatFieldsRejectsMalformed(t *testing.T) {
	if _, ok := statFields("no closing paren here"); ok {
		t.Fatal("expected statFields to reject a line with no ')'")
	}
}

func TestConfigMatchesDirectBinary(t *testing.T) {
	cfg := Config{Binaries: []string{"claude"}}
	if !cfg.matches("claude\x00--foo\x00bar") {
		t.Fatal("expected direct binary match")
	}
	if cfg.matches("vim\x00file.go") {
		t.Fatal("expected no match for unrelated binary")
	}
}

func TestConfigMatchesNodeMarker(t *testing.T) {
	cfg := Config{NodeMarkers: []string{"claude"}}
	if !cfg.matches("node\x00/usr/lib/node_modules/claude-code/cli.js") {
		t.Fatal("expected node-launched match via marker")
	}
	if cfg.matches("node\x00/project/node_modules/.bin/claude") {
		t.Fatal("expected node_modules/.bin to be excluded")
	}
}

func TestConfigIgnoredDirPrefix(t *testing.T) {
	cfg := Config{IgnoreDirPrefixes: []string{"/home/u/.claude"}}
	if !cfg.ignored("/home/u/.claude/projects/x") {
		t.Fatal("expected ignored dir to match as prefix")
	}
	if cfg.ignored("/home/u/.claude-other") {
		t.Fatal("expected prefix match to require a path separator boundary")
	}
}

func TestParsePaneTargets(t *testing.T) {
	out := "1111\tmain\t0\t0\n2222\tmain\t1\t2\n"
	targets := parsePaneTargets(out)
	if len(targets) != 2 {
		t.Fatalf("len(targets) = %d, want 2", len(targets))
	}
	if targets[1111] != "main:0.0" {
		t.Errorf("targets[1111] = %q, want main:0.0", targets[1111])
	}
	if targets[2222] != "main:1.2" {
		t.Errorf("targets[2222] = %q, want main:1.2", targets[2222])
	}
}

func TestParsePaneTargetsSkipsMalformedLines(t *testing.T) {
	out := "1111\tmain\t0\t0\nnot-a-pid\tmain\t1\t2\n1111\ttoo\tfew\n"
	targets := parsePaneTargets(out)
	if len(targets) != 1 {
		t.Fatalf("len(targets) = %d, want 1 (malformed lines skipped)", len(targets))
	}
}

func TestTmuxResolverNilIsSafe(t *testing.T) {
	var r *TmuxResolver
	if _, ok := r.Resolve(123); ok {
		t.Fatal("expected nil resolver to report no match")
	}
}
