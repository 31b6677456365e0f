package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestStringifyJSONScalars(t *testing.T) {
	params := stringify(map[string]interface{}{
		"orderNumber": "ORD1",
		"amount":      float64(10000),
		"isSuccess":   true,
		"nested":      map[string]interface{}{"dropped": true},
		"empty":       nil,
	})

	assert.Equal(t, "ORD1", params["orderNumber"])
	assert.Equal(t, "10000", params["amount"])
	assert.Equal(t, "true", params["isSuccess"])
	_, nested := params["nested"]
	assert.False(t, nested, "non-scalar values are dropped")
	_, empty := params["empty"]
	assert.False(t, empty)
}

func TestListParamsDefaults(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?limit=0&page=-1", nil)
	limit, page := listParams(e.NewContext(req, httptest.NewRecorder()))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 1, page)

	req = httptest.NewRequest(http.MethodGet, "/?limit=10&page=3", nil)
	limit, page = listParams(e.NewContext(req, httptest.NewRecorder()))
	assert.Equal(t, 10, limit)
	assert.Equal(t, 3, page)
}
