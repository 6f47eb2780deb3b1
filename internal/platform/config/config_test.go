package config

import (
	"testing"
	"time"

	kit "reportdash/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	api := New().Prefix("CORE_API_")
	if got := api.key("PORT"); got != "CORE_API_PORT" {
		t.Fatalf("key() = %q", got)
	}
	if got := api.Prefix("LOG_").key("LEVEL"); got != "CORE_API_LOG_LEVEL" {
		t.Fatalf("nested key() = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  reportdash ")
	if got := c.MustString("NAME"); got != "reportdash" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustIntAndPort(t *testing.T) {
	c := New().Prefix("SVC_")
	t.Setenv("SVC_WORKERS", " 8 ")
	t.Setenv("SVC_PORT", "4000")
	t.Setenv("SVC_BADPORT", "70000")
	t.Setenv("SVC_BAD", "x")

	if got := c.MustInt("WORKERS"); got != 8 {
		t.Fatalf("MustInt = %d", got)
	}
	if got := c.MustPort("PORT"); got != ":4000" {
		t.Fatalf("MustPort = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustInt("BAD") })
	kit.MustPanic(t, func() { _ = c.MustPort("BADPORT") })
}

func TestMayReaders(t *testing.T) {
	c := New().Prefix("M_")
	t.Setenv("M_S", "hello")
	t.Setenv("M_I", "42")
	t.Setenv("M_IBAD", "4x2")
	t.Setenv("M_B", "true")
	t.Setenv("M_BBAD", "perhaps")
	t.Setenv("M_D", "1500ms")
	t.Setenv("M_DBAD", "soon")
	t.Setenv("M_CSV", " a, ,b ,c ")
	t.Setenv("M_CSVBLANK", " , ")

	if got := c.MayString("S", "x"); got != "hello" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayString("NOPE", "x"); got != "x" {
		t.Fatalf("MayString default = %q", got)
	}
	if got := c.MayInt("I", 1); got != 42 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt("IBAD", 1); got != 1 {
		t.Fatalf("MayInt bad = %d", got)
	}
	if !c.MayBool("B", false) || !c.MayBool("BBAD", true) {
		t.Fatalf("MayBool mismatch")
	}
	if got := c.MayDuration("D", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
	if got := c.MayDuration("DBAD", time.Second); got != time.Second {
		t.Fatalf("MayDuration bad = %v", got)
	}
	if got := c.MayCSV("CSV", nil); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("MayCSV = %v", got)
	}
	if got := c.MayCSV("CSVBLANK", []string{"d"}); len(got) != 1 || got[0] != "d" {
		t.Fatalf("MayCSV blank = %v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	t.Setenv("E_SOURCE", "PG")
	if got := c.MayEnum("SOURCE", "file", "file", "pg", "ch"); got != "pg" {
		t.Fatalf("MayEnum = %q", got)
	}
	if got := c.MayEnum("UNSET", "file", "file", "pg"); got != "file" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_BAD", "mongo")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "file", "file", "pg") })
}
