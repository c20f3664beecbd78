package main

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"gemini_api_key", "AIzaSyExample1234", "AIza*********1234"},
		{"gemini_api_key", "short", "short"},
		{"steam_api_key", "ключ-секрет-значение", "ключ************ение"},
		{"discord_webhook_url", "https://discord.com/api/webhooks/1/abc", "https://discord.com/api/webhooks/1/abc"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.key, tt.value); got != tt.want {
			t.Errorf("maskSecret(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}
