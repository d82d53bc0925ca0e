package localization

import "testing"

func TestGet(t *testing.T) {
	s, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tests := []struct {
		name   string
		lang   string
		key    string
		params map[string]interface{}
		want   string
	}{
		{name: "english with params", lang: "en", key: "traffic.limit", params: map[string]interface{}{"gb": 50}, want: "50 GB"},
		{name: "region suffix stripped", lang: "en-US", key: "traffic.unlimited", want: "Unlimited"},
		{name: "russian default", lang: "", key: "period.months", params: map[string]interface{}{"months": 3}, want: "3 мес."},
		{name: "unknown language falls back to ru", lang: "de", key: "traffic.unlimited", want: "Безлимит"},
		{name: "missing key returned as is", lang: "en", key: "traffic.nope", want: "traffic.nope"},
		{name: "section is not a string", lang: "en", key: "errors", want: "errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Get(tt.lang, tt.key, tt.params); got != tt.want {
				t.Errorf("Get(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same service")
	}
	if !Default().Supported("EN") {
		t.Error("en should be supported")
	}
}
