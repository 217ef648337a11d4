package cache

import "testing"

func TestStatsRecordAndSnapshot(t *testing.T) {
	var s Stats
	s.RecordHit()
	s.RecordHit()
	s.RecordMiss()
	s.RecordEviction()

	snap := s.Snapshot()
	if snap.Hits != 2 || snap.Misses != 1 || snap.Evictions != 1 {
		t.Fatalf("Snapshot() = %+v", snap)
	}
}

func TestSnapshotHitRate(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{"no lookups", Snapshot{}, 0},
		{"all hits", Snapshot{Hits: 4}, 1},
		{"half hits", Snapshot{Hits: 2, Misses: 2}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.snap.HitRate(); got != tc.want {
				t.Errorf("HitRate() = %v, want %v", got, tc.want)
			}
		})
	}
}
