package main

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"home-services-server/config"
	"home-services-server/models"
	"home-services-server/store/memstore"
	"home-services-server/utils"
)

func TestEnsureAdminIsIdempotent(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := memstore.New()
	cfg := config.AdminConfig{Email: " Admin@Example.com", Password: "changeme"}

	c.Assert(ensureAdmin(ctx, s, cfg), qt.IsNil)
	c.Assert(ensureAdmin(ctx, s, cfg), qt.IsNil)

	admin, err := s.AccountByEmail(ctx, "admin@example.com")
	c.Assert(err, qt.IsNil)
	c.Assert(admin.Role, qt.Equals, models.RoleAdmin)
	c.Assert(utils.CheckPasswordHash("changeme", admin.PasswordHash), qt.IsTrue)
}

func TestEnsureAdminSkippedWithoutCredentials(t *testing.T) {
	c := qt.New(t)
	s := memstore.New()
	c.Assert(ensureAdmin(context.Background(), s, config.AdminConfig{Email: "admin@example.com"}), qt.IsNil)

	_, err := s.AccountByEmail(context.Background(), "admin@example.com")
	c.Assert(err, qt.ErrorMatches, `.*not found`)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	c := qt.New(t)
	_, _, err := openStore(&config.Config{Store: config.StoreConfig{Driver: "mongo"}})
	c.Assert(err, qt.ErrorMatches, `store driver "mongo" not supported`)
}
