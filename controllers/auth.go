package controllers

import (
	"net/http"

	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Auth(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", ctl.Register)
		auth.POST("/login", ctl.Login)
		auth.POST("/elder", ctl.LoginElder)
		auth.POST("/logout", ctl.Logout)
		auth.GET("/me", ctl.Me)
	}
}

type registerRequest struct {
	Name     string    `json:"name" binding:"required"`
	Email    string    `json:"email" binding:"required"`
	Password string    `json:"password" binding:"required"`
	Role     role.Role `json:"role" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type elderLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

/*
* Bind the registration fields and if any error return error
* The session manager creates the credential and the profile
 */
func (ctl *Controller) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	acc, err := ctl.Session.RegisterAccount(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(acc))
}

func (ctl *Controller) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	acc, err := ctl.Session.LoginAccount(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(acc))
}

func (ctl *Controller) LoginElder(c *gin.Context) {
	var req elderLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	elder, err := ctl.Session.LoginElder(c.Request.Context(), req.Code)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(elder))
}

func (ctl *Controller) Logout(c *gin.Context) {
	ctl.Session.Logout(c.Request.Context())
	c.JSON(http.StatusOK, SuccessResponse("logged out"))
}

type meResponse struct {
	State      string           `json:"state"`
	Kind       string           `json:"kind"`
	Identity   models.Identity  `json:"identity"`
	Privileges []role.Privilege `json:"privileges"`
}

func (ctl *Controller) Me(c *gin.Context) {
	id := ctl.Session.Current()
	c.JSON(http.StatusOK, SuccessResponse(meResponse{
		State:      ctl.Session.State().String(),
		Kind:       id.Kind(),
		Identity:   id,
		Privileges: role.Privileges(id.Role()),
	}))
}
