package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's identifier from echo.Context.
// The JWT middleware stores the token's subject under "user_id"; depending
// on how the identity provider encodes it, the claim may arrive as a string
// or as a JSON number.
func getUserID(c echo.Context) (string, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	return "", errors.New("invalid user_id in context")
}
