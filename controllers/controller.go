package controllers

import (
	"errors"
	"net/http"

	"ElderCare360/apperr"
	"ElderCare360/role"
	"ElderCare360/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller binds the HTTP surface to the session manager and the care services.
type Controller struct {
	Session *services.SessionManager
	Care    *services.CareStore
	Games   *services.GameService
	Lookup  *services.MedicationLookup
	Log     *zap.Logger
}

func SuccessResponse(data interface{}) gin.H {
	return gin.H{"status": "success", "data": data}
}

func FailedResponse(err error) gin.H {
	var e *apperr.Error
	if errors.As(err, &e) {
		return gin.H{"status": "failed", "code": e.Code, "error": e.Message}
	}
	return gin.H{"status": "failed", "code": apperr.CodeOf(err), "error": err.Error()}
}

func (ctl *Controller) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		ctl.Log.Error("Request failed", zap.String("path", c.FullPath()), zap.String("request_id", c.GetString("requestId")), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, FailedResponse(err))
}

func (ctl *Controller) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FailedResponse(apperr.Invalid("%v", err)))
}

/*
* Resolve the current identity of the process
* Reject when nobody is signed in
* Reject when the role has no privilege for resource and action
 */
func (ctl *Controller) Authorize(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ctl.Session.Current()
		if id.IsNone() {
			ctl.fail(c, apperr.ErrNotSignedIn)
			return
		}
		if !role.Can(id.Role(), resource, action) {
			ctl.fail(c, apperr.ErrForbidden)
			return
		}
		c.Set("identity", id)
		c.Next()
	}
}

// Health reports whether the session has been resolved.
func (ctl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"session": ctl.Session.State().String()}))
}
