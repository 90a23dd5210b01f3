package search

import "testing"

func TestPlainText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"heading and emphasis", "## Big **news** today", "Big news today"},
		{"bullets and numbers", "- one\n* two\n3. three", "one\ntwo\nthree"},
		{"links and images", "see [docs](https://x.io) ![logo](a.png)", "see docs logo"},
		{"quote", "> quoted   text", "quoted text"},
		{"table", "| Name | Limit |\n|:---|---:|\n| X | 280 |", "Name Limit\nX 280"},
		{"code fence", "```go\nfmt.Println()\n```", "fmt.Println()"},
		{"crlf and blanks", "a\r\n\r\n\r\nb", "a\nb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in); got != tc.want {
				t.Fatalf("PlainText(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}
