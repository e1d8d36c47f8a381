package controllers

import (
	"net/http"

	"ElderCare360/apperr"
	"ElderCare360/role"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Elder(router gin.IRouter) {
	elder := router.Group("/elder")
	{
		elder.GET("/patient", ctl.Authorize(role.ResourcePatient, role.ActionView), ctl.ElderPatient)
		elder.POST("/games", ctl.Authorize(role.ResourceGame, role.ActionPlay), ctl.StartGame)
		elder.GET("/games/:sessionId", ctl.Authorize(role.ResourceGame, role.ActionPlay), ctl.GameState)
		elder.POST("/games/:sessionId/play", ctl.Authorize(role.ResourceGame, role.ActionPlay), ctl.PlayGame)
		elder.DELETE("/games/:sessionId", ctl.Authorize(role.ResourceGame, role.ActionPlay), ctl.EndGame)
	}
}

func (ctl *Controller) ElderPatient(c *gin.Context) {
	p, err := ctl.Care.ElderPatient(c.Request.Context())
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(p))
}

func (ctl *Controller) StartGame(c *gin.Context) {
	sess, err := ctl.Games.Start(c.Request.Context())
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(sess))
}

func (ctl *Controller) GameState(c *gin.Context) {
	sess, err := ctl.Games.State(c.Param("sessionId"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(sess))
}

type playRequest struct {
	Choice *int `json:"choice"`
}

func (ctl *Controller) PlayGame(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	if req.Choice == nil {
		ctl.fail(c, apperr.Invalid("choice is required"))
		return
	}
	move, err := ctl.Games.Play(c.Param("sessionId"), *req.Choice)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(move))
}

func (ctl *Controller) EndGame(c *gin.Context) {
	if err := ctl.Games.End(c.Param("sessionId")); err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("game ended"))
}
