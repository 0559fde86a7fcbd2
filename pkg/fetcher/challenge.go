package fetcher

import (
	"fmt"
	"strings"
)

// Challenge types reported by DetectChallenge.
const (
	ChallengeCloudflare = "cloudflare"
	ChallengeTurnstile  = "cloudflare-turnstile"
	ChallengeHCaptcha   = "hcaptcha"
	ChallengeReCaptcha  = "recaptcha"
	ChallengeAntiBot    = "anti-bot"
)

// DetectChallenge checks if the page content indicates a challenge/CAPTCHA
// page and returns its type, or "" for a normal page.
func DetectChallenge(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	// Cloudflare interstitials
	if strings.Contains(titleLower, "just a moment") ||
		strings.Contains(titleLower, "attention required") ||
		strings.Contains(htmlLower, "cf-challenge") ||
		strings.Contains(htmlLower, "cf_chl_opt") {
		return ChallengeCloudflare
	}

	if strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile") ||
		strings.Contains(htmlLower, "cf-turnstile") {
		return ChallengeTurnstile
	}

	if strings.Contains(htmlLower, "hcaptcha.com") ||
		strings.Contains(htmlLower, "h-captcha") {
		return ChallengeHCaptcha
	}

	if strings.Contains(htmlLower, "google.com/recaptcha") ||
		strings.Contains(htmlLower, "g-recaptcha") {
		return ChallengeReCaptcha
	}

	if strings.Contains(titleLower, "access denied") ||
		strings.Contains(titleLower, "security check") ||
		strings.Contains(titleLower, "bot detection") ||
		strings.Contains(htmlLower, "robot or human") {
		return ChallengeAntiBot
	}

	return ""
}

// IsCaptcha reports whether a challenge type needs a human to solve it.
func IsCaptcha(challenge string) bool {
	switch challenge {
	case ChallengeTurnstile, ChallengeHCaptcha, ChallengeReCaptcha:
		return true
	}
	return false
}

// ChallengeError wraps the sentinel error matching a challenge type.
func ChallengeError(challenge string) error {
	if IsCaptcha(challenge) {
		return fmt.Errorf("%w: %s", ErrCaptchaChallenge, challenge)
	}
	return fmt.Errorf("%w: %s", ErrAntiBot, challenge)
}
