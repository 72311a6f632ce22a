package repository

import "testing"

func TestLikePrefixEscapesWildcards(t *testing.T) {
	got := likePrefix("user_name%")
	want := `user\_name\%%`
	if got != want {
		t.Fatalf("likePrefix(%q) = %q, want %q", "user_name%", got, want)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Fatalf("nullIfEmpty(\"\") should be nil")
	}
	if nullIfEmpty("wf-1") != "wf-1" {
		t.Fatalf("nullIfEmpty(\"wf-1\") should pass through unchanged")
	}
}
