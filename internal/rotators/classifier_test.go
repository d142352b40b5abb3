package rotators

import (
	"testing"
	"time"
)

func TestClassify_RaidByName(t *testing.T) {
	ends := time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		want Bucket
	}{
		{"Vault of Glass", BucketRaids},
		{"KING'S FALL", BucketRaids},
		{"Weekly Raid Challenge: Salvation's Edge", BucketRaids},
		{"The Shattered Throne", BucketDungeons},
		{"Grasp of Avarice", BucketDungeons},
	}
	for _, tc := range cases {
		if got := Classify(tc.name, "some activity", &ends); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassify_RaidCheckedBeforeDungeon(t *testing.T) {
	// A name matching both lists resolves to raids; documented policy.
	if got := Classify("Vault of Glass and Prophecy", "", nil); got != BucketRaids {
		t.Fatalf("expected raids on double match, got %q", got)
	}
}

func TestClassify_OtherRequiresActivityAndEndDate(t *testing.T) {
	ends := time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)

	if got := Classify("Nightfall Rotation", "The Lightblade", &ends); got != BucketOther {
		t.Fatalf("expected other, got %q", got)
	}
	if got := Classify("Nightfall Rotation", "", &ends); got != BucketNone {
		t.Fatalf("milestone without activity must be dropped, got %q", got)
	}
	if got := Classify("Nightfall Rotation", "The Lightblade", nil); got != BucketNone {
		t.Fatalf("milestone without end date must be dropped, got %q", got)
	}
}

func TestHasElevatedDifficulty(t *testing.T) {
	if !HasElevatedDifficulty([]string{"Vault of Glass", "Vault of Glass: Master"}) {
		t.Fatalf("expected master variant to be detected")
	}
	if HasElevatedDifficulty([]string{"Vault of Glass"}) {
		t.Fatalf("no master variant present")
	}
	// The marker is case-sensitive by upstream convention.
	if HasElevatedDifficulty([]string{"vault of glass: master"}) {
		t.Fatalf("lowercase marker must not match")
	}
}

func TestClassify_VaultOfGlassMasterProperty(t *testing.T) {
	ends := time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)
	if got := Classify("Vault of Glass", "Vault of Glass: Master", &ends); got != BucketRaids {
		t.Fatalf("expected raids, got %q", got)
	}
	if !HasElevatedDifficulty([]string{"Vault of Glass: Master"}) {
		t.Fatalf("expected elevated difficulty")
	}
}
