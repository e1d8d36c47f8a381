package controllers

import (
	"net/http"

	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Appointment(router gin.IRouter) {
	appointment := router.Group("/patients/:patientId/appointments")
	{
		appointment.GET("", ctl.Authorize(role.ResourceAppointment, role.ActionView), ctl.ListAppointments)
		appointment.POST("", ctl.Authorize(role.ResourceAppointment, role.ActionCreate), ctl.AssignAppointment)
		appointment.GET("/stream", ctl.Authorize(role.ResourceAppointment, role.ActionView), ctl.StreamAppointments)
		appointment.PATCH("/:appointmentId", ctl.Authorize(role.ResourceAppointment, role.ActionUpdate), ctl.UpdateAppointment)
		appointment.DELETE("/:appointmentId", ctl.Authorize(role.ResourceAppointment, role.ActionDelete), ctl.RemoveAppointment)
	}
}

func (ctl *Controller) ListAppointments(c *gin.Context) {
	list, err := ctl.Care.ListAppointments(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(list))
}

func (ctl *Controller) AssignAppointment(c *gin.Context) {
	var in models.AppointmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		ctl.badRequest(c, err)
		return
	}
	a, err := ctl.Care.AssignAppointment(c.Request.Context(), c.Param("patientId"), in)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(a))
}

func (ctl *Controller) UpdateAppointment(c *gin.Context) {
	var u models.AppointmentUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		ctl.badRequest(c, err)
		return
	}
	a, err := ctl.Care.UpdateAppointment(c.Request.Context(), c.Param("patientId"), c.Param("appointmentId"), u)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(a))
}

func (ctl *Controller) RemoveAppointment(c *gin.Context) {
	if err := ctl.Care.RemoveAppointment(c.Request.Context(), c.Param("patientId"), c.Param("appointmentId")); err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("appointment removed"))
}

func (ctl *Controller) StreamAppointments(c *gin.Context) {
	window, err := queryInt(c, "window")
	if err != nil {
		ctl.fail(c, err)
		return
	}
	ch, err := ctl.Care.WatchAppointments(c.Request.Context(), c.Param("patientId"), window)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	stream(c, ch)
}
