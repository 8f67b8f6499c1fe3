package utils

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPasswordHashing(t *testing.T) {
	c := qt.New(t)

	hash, err := HashPassword("s3cret!")
	c.Assert(err, qt.IsNil)
	c.Assert(hash, qt.Not(qt.Equals), "s3cret!")
	c.Assert(CheckPasswordHash("s3cret!", hash), qt.IsTrue)
	c.Assert(CheckPasswordHash("wrong", hash), qt.IsFalse)
}
