package bot

import (
	"testing"
)

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data    string
		want    callbackAction
		wantErr bool
	}{
		{data: "add:301:movie", want: callbackAction{Verb: "add", ProviderID: 301, Kind: "movie"}},
		{data: "add:301:tv", want: callbackAction{Verb: "add", ProviderID: 301, Kind: "tv"}},
		{data: "add:301", want: callbackAction{Verb: "add", ProviderID: 301, Kind: "movie"}},
		{data: "info:42:tv", want: callbackAction{Verb: "info", ProviderID: 42, Kind: "tv"}},
		{data: "similar:7:movie", want: callbackAction{Verb: "similar", ProviderID: 7, Kind: "movie"}},
		{data: "genre:27", want: callbackAction{Verb: "genre", GenreID: 27}},
		{data: "watched:12", want: callbackAction{Verb: "watched", EntryID: 12}},
		{data: "remove:13", want: callbackAction{Verb: "remove", EntryID: 13}},
		{data: "remove:abc", wantErr: true},
		{data: "unknown:1", wantErr: true},
		{data: "watched", wantErr: true},
		{data: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, err := parseCallback(tc.data)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCallback(%q): %v", tc.data, err)
			}
			if got != tc.want {
				t.Fatalf("parseCallback(%q) = %+v, want %+v", tc.data, got, tc.want)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text        string
		wantCommand string
		wantArgs    string
	}{
		{"/start", "/start", ""},
		{"/search the matrix", "/search", "the matrix"},
		{"/search@MovieMateBot the matrix", "/search", "the matrix"},
		{"/watchlist@MovieMateBot", "/watchlist", ""},
	}

	for _, tc := range cases {
		command, args := splitCommand(tc.text)
		if command != tc.wantCommand || args != tc.wantArgs {
			t.Fatalf("splitCommand(%q) = (%q, %q), want (%q, %q)",
				tc.text, command, args, tc.wantCommand, tc.wantArgs)
		}
	}
}

func TestLocaleFor(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"en", "en"},
		{"pt-br", "pt"},
		{"ru", "ru"},
		{"", "ru"},
		{"??", "ru"},
	}

	for _, tc := range cases {
		if got := localeFor(tc.code); got != tc.want {
			t.Fatalf("localeFor(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := shorten("a very long movie title", 10); got != "a very lo…" {
		t.Fatalf("unexpected %q", got)
	}
	// Rune-aware truncation must not split multibyte characters.
	if got := shorten("Властелин колец", 10); got != "Властелин…" {
		t.Fatalf("unexpected %q", got)
	}
}
