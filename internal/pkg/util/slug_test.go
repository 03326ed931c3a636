package util

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Hello   World  ", "hello-world"},
		{"Go 1.24 Release Notes!", "go-1-24-release-notes"},
		{"already-slugged", "already-slugged"},
		{"UPPER case MiXeD", "upper-case-mixed"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"你好世界", ""},
		{"???", ""},
		{"", ""},
	}

	for _, c := range cases {
		if got := Slugify(c.title); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

func TestStrSliceToUInt64Slice(t *testing.T) {
	got, err := StrSliceToUInt64Slice([]string{"1", "42", "9000"})
	if err != nil {
		t.Fatalf("convert slice: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 42 || got[2] != 9000 {
		t.Fatalf("unexpected result: %v", got)
	}

	if _, err := StrSliceToUInt64Slice([]string{"1", "abc"}); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
}
