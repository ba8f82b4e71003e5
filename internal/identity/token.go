package identity

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry はIDトークンの有効期限を決定する。
// トークンはJWTなのでexpクレームを優先し、取り出せない場合は
// レスポンスのexpiresIn（秒）から算出する。
// 署名検証は行わない。トークンの信頼はバックエンド側にあり、
// ここでは期限のスケジューリングにのみ使用する。
func tokenExpiry(idToken, expiresIn string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	if sec, err := strconv.Atoi(expiresIn); err == nil && sec > 0 {
		return time.Now().Add(time.Duration(sec) * time.Second)
	}

	return time.Time{}
}
