package bucket

import (
	"testing"
	"time"

	perr "reportdash/internal/platform/errors"
	kit "reportdash/internal/platform/testkit"
)

func TestNew_Labels(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		g          Granularity
		want       []string
	}{
		{"days", "2024-01-30", "2024-02-02", Day, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}},
		{"weeks start monday", "2024-01-03", "2024-01-16", Week, []string{"2024-01-01", "2024-01-08", "2024-01-15"}},
		{"months", "2024-01-15", "2024-03-01", Month, []string{"2024-01", "2024-02", "2024-03"}},
		{"quarters", "2023-11-01", "2024-04-01", Quarter, []string{"2023-Q4", "2024-Q1", "2024-Q2"}},
		{"years", "2022-06-01", "2024-01-01", Year, []string{"2022", "2023", "2024"}},
		{"single day", "2024-05-05", "2024-05-05", Day, []string{"2024-05-05"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := New(kit.Day(t, tc.start), kit.Day(t, tc.end), tc.g)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			got := b.Labels()
			if len(got) != len(tc.want) {
				t.Fatalf("labels = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("labels[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestBuckets_ContiguousAndDisjoint(t *testing.T) {
	for _, g := range []Granularity{Day, Week, Month, Quarter, Year} {
		b, err := New(kit.Day(t, "2023-02-17"), kit.Day(t, "2024-11-03"), g)
		if err != nil {
			t.Fatalf("%s: %v", g, err)
		}
		bs := b.Buckets()
		if !bs[0].Start.Equal(kit.Day(t, "2023-02-17")) {
			t.Fatalf("%s: first bucket starts %v", g, bs[0].Start)
		}
		for i := 1; i < len(bs); i++ {
			if !bs[i].Start.Equal(bs[i-1].End) {
				t.Fatalf("%s: gap between %s and %s", g, bs[i-1].Label, bs[i].Label)
			}
		}
		if _, hi := b.Window(); !hi.After(kit.Day(t, "2024-11-03")) {
			t.Fatalf("%s: window end %v does not cover range end", g, hi)
		}
	}
}

func TestAssign(t *testing.T) {
	b, err := New(kit.Day(t, "2024-01-15"), kit.Day(t, "2024-03-10"), Month)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		at   time.Time
		want int
		ok   bool
	}{
		{kit.Day(t, "2024-01-14"), -1, false},
		{kit.Day(t, "2024-01-15"), 0, true},
		{kit.Day(t, "2024-01-31").Add(23 * time.Hour), 0, true},
		{kit.Day(t, "2024-02-01"), 1, true},
		{kit.Day(t, "2024-03-31"), 2, true},
		{kit.Day(t, "2024-04-01"), -1, false},
	}
	for _, tc := range cases {
		i, ok := b.Assign(tc.at)
		if i != tc.want || ok != tc.ok {
			t.Fatalf("assign(%v) = %d, %v; want %d, %v", tc.at, i, ok, tc.want, tc.ok)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(kit.Day(t, "2024-02-01"), kit.Day(t, "2024-01-01"), Day); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("start after end: %v", err)
	}
	if _, err := New(kit.Day(t, "2024-01-01"), kit.Day(t, "2024-01-02"), "fortnight"); err == nil {
		t.Fatal("unknown granularity accepted")
	}
	if _, err := New(kit.Day(t, "1900-01-01"), kit.Day(t, "2024-01-01"), Day); err == nil {
		t.Fatal("oversized range accepted")
	}
}

func TestParseGranularity(t *testing.T) {
	if g, err := ParseGranularity(" Month "); err != nil || g != Month {
		t.Fatalf("g = %q, err = %v", g, err)
	}
	if _, err := ParseGranularity("hour"); err == nil {
		t.Fatal("hour accepted")
	}
}

func TestSpan(t *testing.T) {
	start, end := kit.Day(t, "1990-03-15"), kit.Day(t, "2024-12-31")
	s, err := Span(start, end, Day)
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
	lo, hi := s.Window()
	if !lo.Equal(start) || !hi.Equal(kit.Day(t, "2025-01-01")) {
		t.Fatalf("window = %v..%v", lo, hi)
	}
	if i, ok := s.Assign(kit.Day(t, "2001-07-04")); !ok || i != 0 {
		t.Fatalf("assign = %d, %v", i, ok)
	}

	n, err := New(kit.Day(t, "2024-01-10"), kit.Day(t, "2024-03-05"), Month)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Span(kit.Day(t, "2024-01-10"), kit.Day(t, "2024-03-05"), Month)
	if err != nil {
		t.Fatal(err)
	}
	nlo, nhi := n.Window()
	mlo, mhi := m.Window()
	if !nlo.Equal(mlo) || !nhi.Equal(mhi) {
		t.Fatalf("span window %v..%v differs from %v..%v", mlo, mhi, nlo, nhi)
	}

	if _, err := Span(end, start, Day); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("start after end: %v", err)
	}
	if _, err := Span(start, end, "fortnight"); err == nil {
		t.Fatal("unknown granularity accepted")
	}
}
