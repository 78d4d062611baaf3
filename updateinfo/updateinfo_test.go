package updateinfo

import (
	"bytes"
	"testing"
)

func TestWriteThenParseRoundTrips(t *testing.T) {
	info := &UpdateInfo{
		Updates: []*UpdateRecord{
			{
				FromStr: "updates@fedoraproject.org",
				Status:  "final",
				Type:    "security",
				Version: "1.0",
				ID:      "FEDORA-2026-abc123",
				Title:   "bash security update",
				Issued:  "2026-01-15 00:00:00",
				Severity: "Important",
				Summary: "An update for bash fixes a security issue.",
				References: []UpdateReference{
					{Href: "https://bugzilla.example.com/1", ID: "1", Type: "bugzilla", Title: "CVE-2026-0001"},
				},
				Collections: []UpdateCollection{
					{
						Short: "FEDORA",
						Name:  "fedora-40",
						Packages: []UpdateCollectionPackage{
							{
								Name: "bash", Version: "5.2.15", Release: "2.fc40", Epoch: "0", Arch: "x86_64",
								Filename: "bash-5.2.15-2.fc40.x86_64.rpm",
								ChecksumType: "sha256", Checksum: "deadbeef",
								RestartSuggested: true,
							},
						},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, info); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("restart_suggested")) {
		t.Error("expected restart_suggested to be serialized when true")
	}

	got, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(got.Updates))
	}
	u := got.Updates[0]
	if u.ID != "FEDORA-2026-abc123" || u.Issued != "2026-01-15 00:00:00" {
		t.Errorf("unexpected update: %+v", u)
	}
	if len(u.References) != 1 || u.References[0].ID != "1" {
		t.Errorf("unexpected references: %+v", u.References)
	}
	if len(u.Collections) != 1 || len(u.Collections[0].Packages) != 1 {
		t.Fatalf("unexpected collections: %+v", u.Collections)
	}
	pkg := u.Collections[0].Packages[0]
	if !pkg.RestartSuggested {
		t.Error("expected RestartSuggested true to round-trip")
	}
	if pkg.Checksum != "deadbeef" {
		t.Errorf("expected checksum round-trip, got %q", pkg.Checksum)
	}
}

func TestPushCountEmptyAndMissingAreEquivalent(t *testing.T) {
	info := &UpdateInfo{Updates: []*UpdateRecord{{ID: "X", PushCount: ""}}}
	var buf bytes.Buffer
	if err := Write(&buf, info); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("pushcount")) {
		t.Error("expected empty pushcount to be omitted entirely, same as a missing one")
	}
}
