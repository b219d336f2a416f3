package auth

import "regexp"

var kakaoInApp = regexp.MustCompile(`(?i)KAKAOTALK`)

// BlockedNotice explains why sign-in cannot start from an in-app browser.
const BlockedNotice = "Google sign-in does not work inside the KakaoTalk browser. " +
	"Tap the menu in the bottom corner, choose \"Open in another browser\", and sign in there."

// BlockedEnvironment reports whether the user agent is an in-app browser
// known to block the Google sign-in flow, with the notice to show.
func BlockedEnvironment(userAgent string) (string, bool) {
	if kakaoInApp.MatchString(userAgent) {
		return BlockedNotice, true
	}
	return "", false
}
