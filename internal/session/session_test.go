package session

import (
	"net/url"
	"testing"
)

func TestResolveUserID(t *testing.T) {
	withUser := "query_id=AA&user=" + url.QueryEscape(`{"id":777,"first_name":"Ann","language_code":"en"}`) + "&hash=x"

	tests := []struct {
		name     string
		initData string
		want     int64
		wantErr  bool
	}{
		{name: "user json", initData: withUser, want: 777},
		{name: "numeric", initData: " 42 ", want: 42},
		{name: "user_id key", initData: "user_id=99&hash=x", want: 99},
		{name: "tg_user_id key", initData: "tg_user_id=15", want: 15},
		{name: "empty", initData: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveUserID(tt.initData)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveUserID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveUserID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveUserIDFallbackIsStable(t *testing.T) {
	first, err := ResolveUserID("opaque-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := ResolveUserID("opaque-token")
	if first <= 0 || first != second {
		t.Errorf("fallback ids = %d, %d; want equal positive values", first, second)
	}
}

func TestParseUser(t *testing.T) {
	initData := "user=" + url.QueryEscape(`{"id":5,"username":"neo","language_code":"ru"}`)
	user, ok := ParseUser(initData)
	if !ok {
		t.Fatal("expected user")
	}
	if user.ID != 5 || user.Username != "neo" || user.LanguageCode != "ru" {
		t.Errorf("ParseUser() = %+v", user)
	}

	if _, ok := ParseUser("hash=abc"); ok {
		t.Error("ParseUser without user field should fail")
	}
}

func TestIsDev(t *testing.T) {
	if !IsDev(nil) || !IsDev(Static("")) {
		t.Error("missing init data should be dev mode")
	}
	if IsDev(ProviderFunc(func() string { return "x=1" })) {
		t.Error("non-empty init data is not dev mode")
	}
}
