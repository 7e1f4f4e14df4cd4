package model

import "testing"

func TestFailedMarksConfiguration(t *testing.T) {
	o := Failed(FailureConfiguration, "linkedin webhook not configured")
	if o.Success || !o.RequiresConfiguration {
		t.Fatalf("configuration outcome = %+v", o)
	}
	o = Failed(FailureAPI, "boom")
	if o.RequiresConfiguration {
		t.Fatalf("generic failure must not require configuration: %+v", o)
	}
}

func TestParseTargetStatus(t *testing.T) {
	cases := map[string]TargetStatus{
		"published":  StatusPublished,
		" FAILED ":   StatusFailed,
		"publishing": StatusPublishing,
		"idle":       StatusIdle,
		"bogus":      StatusIdle,
	}
	for in, want := range cases {
		if got := ParseTargetStatus(in); got != want {
			t.Fatalf("ParseTargetStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayNameAndNormalize(t *testing.T) {
	if got := DisplayName("twitter"); got != "Twitter" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := PlatformID("  LinkedIn ").Normalize(); got != "linkedin" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestBatchResultPlatformsSorted(t *testing.T) {
	b := BatchResult{Outcomes: map[PlatformID]Outcome{"twitter": {}, "instagram": {}, "linkedin": {}}}
	got := b.Platforms()
	want := []PlatformID{"instagram", "linkedin", "twitter"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Platforms() = %v, want %v", got, want)
		}
	}
}
