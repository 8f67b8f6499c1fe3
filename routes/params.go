package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/utils"
)

// fail attaches err for the ErrorHandler and stops the chain
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// bindJSON decodes the body and runs binding validation
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if bodyTooLarge(err) {
			return err
		}
		return errors.NewNotValid(err, "invalid request body")
	}
	return nil
}

// bodyTooLarge reports whether err came from the request size limit. Such
// errors are passed through unchanged so they map to 413.
func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func paramID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.NotValidf("%s %q", name, raw)
	}
	return uint(id), nil
}

// queryFloat parses an optional numeric query parameter
func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.NotValidf("%s %q", name, raw)
	}
	return &value, nil
}

// queryNear parses location=lng,lat and radius=km. Both must be present for
// a radius search; required forces that.
func queryNear(c *gin.Context, required bool) (*utils.Point, float64, error) {
	location, radius := c.Query("location"), c.Query("radius")
	if location == "" || radius == "" {
		if required {
			return nil, 0, errors.BadRequestf("location and radius query parameters are required")
		}
		return nil, 0, nil
	}
	point, err := utils.ParsePoint(location)
	if err != nil {
		return nil, 0, err
	}
	meters, err := utils.ParseRadiusKm(radius)
	if err != nil {
		return nil, 0, err
	}
	return &point, meters, nil
}
