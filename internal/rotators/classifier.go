// Package rotators buckets time-limited milestones into featured rotating
// content categories by heuristic name matching.
package rotators

import (
	"strings"
	"time"
)

// Bucket is a rotator category.
type Bucket string

const (
	BucketRaids    Bucket = "raids"
	BucketDungeons Bucket = "dungeons"
	BucketOther    Bucket = "other"
	// BucketNone means the milestone is not a rotator worth surfacing.
	BucketNone Bucket = ""
)

// Classify decides bucket membership from a milestone's resolved name, its
// first resolved activity name, and its end date. The raid list is checked
// before the dungeon list; a name matching both resolves to raids. A
// milestone matching neither list lands in "other" only when it has both a
// resolved activity and an end date.
func Classify(milestoneName, activityName string, endsAt *time.Time) Bucket {
	lower := strings.ToLower(milestoneName)

	for _, kw := range raidKeywords {
		if strings.Contains(lower, kw) {
			return BucketRaids
		}
	}
	for _, kw := range dungeonKeywords {
		if strings.Contains(lower, kw) {
			return BucketDungeons
		}
	}
	if activityName != "" && endsAt != nil {
		return BucketOther
	}
	return BucketNone
}

// HasElevatedDifficulty reports whether any activity name under a milestone
// carries the master difficulty marker.
func HasElevatedDifficulty(activityNames []string) bool {
	for _, name := range activityNames {
		if strings.Contains(name, masterMarker) {
			return true
		}
	}
	return false
}
