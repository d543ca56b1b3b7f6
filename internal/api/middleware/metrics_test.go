package middleware

import "testing"

// TestNormalizePath проверяет нормализацию путей для лейблов метрик.
func TestNormalizePath(t *testing.T) {
	const fileID = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"

	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/files/search", "/api/v1/files/search"},
		{"/api/v1/files/" + fileID, "/api/v1/files/{id}"},
		{"/api/v1/files/" + fileID + "/invalidate", "/api/v1/files/{id}/invalidate"},
		{"/api/v1/files/" + fileID + "/reindex", "/api/v1/files/{id}/reindex"},
		{"/api/v1/vaults/team-docs/recent", "/api/v1/vaults/{id}/recent"},
		{"/api/v1/vaults/team-docs/suggestions", "/api/v1/vaults/{id}/suggestions"},
		{"/api/v1/vaults/team-docs", "/api/v1/vaults/{id}"},
		{"/unknown/path", "/unknown/path"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", tt.path, got, tt.want)
		}
	}
}
