package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"mindmate/pkg"
)

func meta(c *gin.Context) pkg.Meta {
	return pkg.Meta{Timestamp: time.Now().UTC(), RequestID: requestIDFrom(c)}
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, pkg.Envelope{Success: true, Data: data, Meta: meta(c)})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, pkg.Envelope{
		Success: false,
		Error:   &pkg.APIError{Code: code, Message: message},
		Meta:    meta(c),
	})
}
