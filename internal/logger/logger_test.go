package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTYifQ.sig"
	got := sanitizeKVs([]interface{}{
		"accountId", "abc",
		"Password", "hunter2",
		"email", "p@example.com",
		"value", jwtLike,
		"dangling",
	})
	want := []interface{}{
		"accountId", "abc",
		"Password", redacted,
		"email", redacted,
		"value", redacted,
		"dangling",
	}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kv[%d]: want=%v got=%v", i, want[i], got[i])
		}
	}
}
