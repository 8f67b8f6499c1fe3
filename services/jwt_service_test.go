package services

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"

	"home-services-server/models"
)

func TestTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	js := NewJWTService("secret", time.Hour)

	token, err := js.GenerateToken(&models.Account{ID: 7, Role: models.RoleProvider})
	c.Assert(err, qt.IsNil)

	claims, err := js.ValidateToken(token)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UserID, qt.Equals, uint(7))
	c.Assert(claims.Role, qt.Equals, "provider")
	c.Assert(claims.Subject, qt.Equals, "7")
}

func TestValidateTokenRejects(t *testing.T) {
	c := qt.New(t)
	js := NewJWTService("secret", time.Hour)

	expired, err := NewJWTService("secret", -time.Minute).GenerateToken(&models.Account{ID: 1})
	c.Assert(err, qt.IsNil)
	otherKey, err := NewJWTService("other", time.Hour).GenerateToken(&models.Account{ID: 1})
	c.Assert(err, qt.IsNil)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	c.Assert(err, qt.IsNil)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"alg none":  unsigned,
		"garbage":   "not-a-token",
	} {
		_, err := js.ValidateToken(token)
		c.Check(errors.Is(err, errors.Unauthorized), qt.IsTrue, qt.Commentf(name))
	}
}
