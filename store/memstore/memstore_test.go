package memstore

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/store"
	"home-services-server/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*qt.C) store.Store { return New() })
}

func newProvider(c *qt.C, s *Store, email string) *models.Account {
	account := &models.Account{Name: "Pat", Email: email, Phone: "555", Role: models.RoleProvider}
	c.Assert(s.CreateAccount(context.Background(), account), qt.IsNil)
	return account
}

func newService(c *qt.C, s *Store, providerID uint, mutate func(*models.Service)) *models.Service {
	service := &models.Service{
		Name:         "Fix sink",
		Category:     models.CategoryPlumbing,
		Description:  "Leaks and clogs",
		Price:        50,
		Duration:     60,
		ProviderID:   providerID,
		Availability: models.Availability{IsAvailable: true},
	}
	if mutate != nil {
		mutate(service)
	}
	c.Assert(s.CreateService(context.Background(), service), qt.IsNil)
	return service
}

func TestAccountIDsAreSequential(t *testing.T) {
	c := qt.New(t)
	s := New()
	ctx := context.Background()

	first := &models.Account{Name: "A", Email: "Ann@Example.com ", Phone: "1"}
	c.Assert(s.CreateAccount(ctx, first), qt.IsNil)
	c.Assert(first.ID, qt.Equals, uint(1))
	c.Assert(first.Role, qt.Equals, models.RoleUser)
	c.Assert(first.Email, qt.Equals, "ann@example.com")

	second := &models.Account{Name: "B", Email: "bob@example.com", Phone: "2"}
	c.Assert(s.CreateAccount(ctx, second), qt.IsNil)
	c.Assert(second.ID, qt.Equals, uint(2))

	_, err := s.AccountByID(ctx, 42)
	c.Assert(err, qt.ErrorMatches, "account 42 not found")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	c := qt.New(t)
	s := New()
	ctx := context.Background()

	provider := newProvider(c, s, "p@example.com")
	svc := newService(c, s, provider.ID, func(svc *models.Service) { svc.Tags = []string{"sink"} })

	got, err := s.ServiceByID(ctx, svc.ID)
	c.Assert(err, qt.IsNil)
	got.Tags[0] = "changed"
	got.Name = "changed"

	again, err := s.ServiceByID(ctx, svc.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Tags, qt.DeepEquals, []string{"sink"})
	c.Assert(again.Name, qt.Equals, "Fix sink")
	c.Assert(again.Provider.Email, qt.Equals, "p@example.com")
	c.Assert(again.Provider.PasswordHash, qt.Equals, "")
}

func TestSavedServiceIsCopied(t *testing.T) {
	c := qt.New(t)
	s := New()
	ctx := context.Background()

	provider := newProvider(c, s, "p@example.com")
	svc := newService(c, s, provider.ID, func(svc *models.Service) { svc.Tags = []string{"sink"} })
	c.Assert(s.SaveService(ctx, svc), qt.IsNil)
	svc.Tags[0] = "changed"

	stored, err := s.ServiceByID(ctx, svc.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Tags, qt.DeepEquals, []string{"sink"})
}
