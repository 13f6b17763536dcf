package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// testSecret signs tokens minted for tests. The client never verifies
// signatures, so any key works.
var testSecret = []byte("tripboard-test-secret")

// AccessToken returns a signed HS256 JWT for userID expiring at exp.
func AccessToken(userID string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID,
		"token_type": "access",
		"exp":        exp.Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		panic(err)
	}
	return signed
}
