package controllers

import (
	"net/http"

	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Patient(router gin.IRouter) {
	patient := router.Group("/patients")
	{
		patient.GET("", ctl.Authorize(role.ResourcePatient, role.ActionView), ctl.ListPatients)
		patient.POST("/reload", ctl.Authorize(role.ResourcePatient, role.ActionView), ctl.ReloadPatients)
		patient.POST("", ctl.Authorize(role.ResourcePatient, role.ActionCreate), ctl.CreatePatient)
		patient.GET("/:patientId", ctl.Authorize(role.ResourcePatient, role.ActionView), ctl.FetchPatient)
		patient.PATCH("/:patientId", ctl.Authorize(role.ResourcePatient, role.ActionUpdate), ctl.UpdatePatient)
		patient.PUT("/:patientId/game", ctl.Authorize(role.ResourceGame, role.ActionAssign), ctl.AssignGame)
	}
}

type patientList struct {
	Loading  bool             `json:"loading"`
	Patients []models.Patient `json:"patients"`
}

func (ctl *Controller) ListPatients(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(patientList{Loading: ctl.Care.Loading(), Patients: ctl.Care.Patients()}))
}

func (ctl *Controller) ReloadPatients(c *gin.Context) {
	list, err := ctl.Care.ReloadPatients(c.Request.Context())
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(patientList{Patients: list}))
}

/*
* Bind the form or JSON fields and if any error return error
* The optional photo comes in as the multipart file "photo"
 */
func (ctl *Controller) CreatePatient(c *gin.Context) {
	var in models.PatientInput
	if err := c.ShouldBind(&in); err != nil {
		ctl.badRequest(c, err)
		return
	}
	if fh, err := c.FormFile("photo"); err == nil {
		file, err := fh.Open()
		if err != nil {
			ctl.badRequest(c, err)
			return
		}
		defer file.Close()
		in.Photo = file
		in.PhotoContentType = fh.Header.Get("Content-Type")
	}
	p, err := ctl.Care.AddPatient(c.Request.Context(), in)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(p))
}

func (ctl *Controller) FetchPatient(c *gin.Context) {
	p, err := ctl.Care.Patient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(p))
}

func (ctl *Controller) UpdatePatient(c *gin.Context) {
	var u models.PatientUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		ctl.badRequest(c, err)
		return
	}
	p, err := ctl.Care.UpdatePatient(c.Request.Context(), c.Param("patientId"), u)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(p))
}

type assignGameRequest struct {
	Game models.GameID `json:"game" binding:"required"`
}

func (ctl *Controller) AssignGame(c *gin.Context) {
	var req assignGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	if err := ctl.Care.AssignGame(c.Request.Context(), c.Param("patientId"), req.Game); err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"assignedGame": req.Game}))
}
