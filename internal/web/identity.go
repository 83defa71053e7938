package web

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	cookieStation  = "station"
	cookieOperator = "operator"
	cookieFlash    = "flash"

	identityMaxAge = 60 * 60 * 24 * 365
)

// Identity is the caller-supplied station/operator pair. It is free text
// from persistent cookies, not authenticated; treat it as a label, not a
// credential.
type Identity struct {
	Station  string
	Operator string
}

// identity reads the station/operator cookies.
func identity(c *gin.Context) Identity {
	var id Identity
	if v, err := c.Cookie(cookieStation); err == nil {
		id.Station = strings.TrimSpace(v)
	}
	if v, err := c.Cookie(cookieOperator); err == nil {
		id.Operator = strings.TrimSpace(v)
	}
	return id
}

// flash holds a one-shot user message.
type flash struct {
	Kind    string // "success", "info", "warning", "danger"
	Message string
}

// setFlash stores a one-shot message in a short-lived cookie.
func setFlash(c *gin.Context, kind, message string) {
	c.SetCookie(cookieFlash, url.QueryEscape(kind+"|"+message), 60, "/", "", false, true)
}

// popFlash reads and clears the flash cookie.
func popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(cookieFlash)
	if err != nil {
		return nil
	}
	c.SetCookie(cookieFlash, "", -1, "/", "", false, true)

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(decoded, "|")
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}
