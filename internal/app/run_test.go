package app

import (
	"bytes"
	"testing"
)

// TestRun_WithMissingEnv_ReturnsError は必須環境変数なしでの起動が失敗することを検証する。
func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("IDENTITY_API_KEY", "")
	t.Setenv("IDENTITY_PROJECT_ID", "")
	t.Setenv("WEATHER_API_KEY", "")
	t.Setenv("PLANT_API_TOKEN", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

// TestRun_Healthcheck_NoServer_ReturnsError はサーバーが起動していない状態での
// healthcheckサブコマンドがエラーを返すことを検証する。
func TestRun_Healthcheck_NoServer_ReturnsError(t *testing.T) {
	// 接続先が存在しないポートを指定する
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	err := Run(&buf, []string{"healthcheck"})
	if err == nil {
		t.Fatal("healthcheck without a running server should return error")
	}
}
