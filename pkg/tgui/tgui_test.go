package tgui

import "testing"

func TestEsc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<b>bold</b>", "&lt;b&gt;bold&lt;/b&gt;"},
		{"a & b", "a &amp; b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Esc(tt.in).String(); got != tt.want {
			t.Errorf("Esc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrappers(t *testing.T) {
	if got := B("x<y").String(); got != "<b>x&lt;y</b>" {
		t.Errorf("B = %q", got)
	}
	if got := Code("id").String(); got != "<code>id</code>" {
		t.Errorf("Code = %q", got)
	}
	if got := Spoiler("<spam>").String(); got != "<tg-spoiler>&lt;spam&gt;</tg-spoiler>" {
		t.Errorf("Spoiler = %q", got)
	}
	if got := Mention("A<b", 42).String(); got != `<a href="tg://user?id=42">A&lt;b</a>` {
		t.Errorf("Mention = %q", got)
	}
}

func TestJoinHSkipsEmpty(t *testing.T) {
	got := JoinH("\n", H("a"), H(""), H("  "), H("b"))
	if got.String() != "a\nb" {
		t.Errorf("JoinH = %q", got)
	}
	if JoinH(",").String() != "" {
		t.Error("JoinH() != empty")
	}
}

func TestTruncRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly limit", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello…"},
		{"multibyte", "привет мир", 6, "привет…"},
		{"zero", "hello", 0, ""},
		{"negative", "hello", -1, ""},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncRunes(tt.in, tt.n); got != tt.want {
				t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestDataRoundtrip(t *testing.T) {
	data := Data("dismiss", "12345")
	if data != "dismiss:12345" {
		t.Fatalf("Data = %q", data)
	}
	action, payload, err := SplitData(data)
	if err != nil || action != "dismiss" || payload != "12345" {
		t.Fatalf("SplitData = %q, %q, %v", action, payload, err)
	}
}

func TestSplitDataRejectsMalformed(t *testing.T) {
	for _, data := range []string{"", "  ", "dismiss", "dismiss:", ":12345"} {
		if _, _, err := SplitData(data); err == nil {
			t.Errorf("SplitData(%q) accepted", data)
		}
	}
}

func TestSplitDataFirstSeparatorWins(t *testing.T) {
	action, payload, err := SplitData("note:a:b")
	if err != nil || action != "note" || payload != "a:b" {
		t.Fatalf("SplitData = %q, %q, %v", action, payload, err)
	}
}
