package langmeta

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "zh-Hant", want: "zh-Hant"},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "   ", "not a tag!"} {
		if _, err := Normalize(bad); err == nil {
			t.Fatalf("Normalize(%q) should fail", bad)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("native and english names", func(t *testing.T) {
		got := Resolve("de")
		if got.Name != "Deutsch" || got.English != "German" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("region flag", func(t *testing.T) {
		got := Resolve("pt_BR")
		if got.Flag != "\U0001F1E7\U0001F1F7" {
			t.Fatalf("flag = %q", got.Flag)
		}
	})

	t.Run("unparseable passthrough", func(t *testing.T) {
		got := Resolve("not a tag!")
		if got.Name != "not a tag!" || got.Flag != "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})
}
