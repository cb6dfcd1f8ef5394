package version

import (
	"fmt"
	"strings"
	"testing"
)

func TestInfoReturnsBuildDefaults(t *testing.T) {
	v, c, d := Info()
	if v == "" || c == "" || d == "" {
		t.Fatalf("expected non-empty build info, got version=%q commit=%q date=%q", v, c, d)
	}
}

func TestAccessorsMatchInfo(t *testing.T) {
	v, c, d := Info()

	if got := GetVersion(); got != v {
		t.Errorf("GetVersion() = %q, Info version = %q", got, v)
	}
	if got := GetCommit(); got != c {
		t.Errorf("GetCommit() = %q, Info commit = %q", got, c)
	}
	if got := GetDate(); got != d {
		t.Errorf("GetDate() = %q, Info date = %q", got, d)
	}
}

func TestStringFormat(t *testing.T) {
	s := String()

	want := fmt.Sprintf("version=%s commit=%s date=%s", GetVersion(), GetCommit(), GetDate())
	if s != want {
		t.Fatalf("String() = %q, want %q", s, want)
	}

	for _, field := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, field) {
			t.Errorf("String() lacks %q: %s", field, s)
		}
	}
}
