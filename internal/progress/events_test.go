package progress

import "testing"

func TestPreviewLeavesShortStringsUnchanged(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Errorf("Preview() = %q", got)
	}
}

func TestPreviewTruncatesLongStrings(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'a'
	}
	got := Preview(string(long))
	runes := []rune(got)
	if len(runes) != previewLen+1 {
		t.Fatalf("len(Preview()) = %d, want %d", len(runes), previewLen+1)
	}
	if runes[len(runes)-1] != '…' {
		t.Errorf("Preview() did not end with ellipsis marker")
	}
}
