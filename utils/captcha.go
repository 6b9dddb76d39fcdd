package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaTTL = 10 * time.Minute

var redisCaptcha = NewRedisCaptchaStore(captchaTTL)

// captchaStore picks Redis when it is configured and the process-local store otherwise.
func captchaStore() base64Captcha.Store {
	if GetRedis() != nil {
		return redisCaptcha
	}
	return base64Captcha.DefaultMemStore
}

// GenerateCaptcha creates a five digit captcha and returns its id and PNG data URI.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchaStore())
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer and consumes the captcha either way.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return captchaStore().Verify(id, answer, true)
}

// CaptchaAnswer exposes the stored answer without consuming it. Tests use it to solve captchas.
func CaptchaAnswer(id string) string {
	return captchaStore().Get(id, false)
}
