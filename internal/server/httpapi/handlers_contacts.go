package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/gin-gonic/gin"
)

type contactRequest struct {
	Nome     string  `json:"nome"`
	Telefone string  `json:"telefone"`
	Email    *string `json:"email"`
}

func contactID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, common.ErrorNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) listContacts(c *gin.Context) {
	owner := identityFrom(c)

	contacts, err := s.contacts.Search(c.Request.Context(), owner.ID, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "contacts": contacts})
}

func (s *Server) getContact(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	contact, err := s.contacts.Get(c.Request.Context(), identityFrom(c).ID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "contact": contact})
}

func (s *Server) addContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	contact, err := s.contacts.Add(c.Request.Context(), identityFrom(c).ID, req.Nome, req.Telefone, req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": common.MsgContactAdded, "contact": contact})
}

func (s *Server) updateContact(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	contact, err := s.contacts.UpdateByID(c.Request.Context(), identityFrom(c).ID, id, req.Nome, req.Telefone, req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": common.MsgContactUpdated, "contact": contact})
}

func (s *Server) deleteContact(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	if err := s.contacts.RemoveByID(c.Request.Context(), identityFrom(c).ID, id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": common.MsgContactRemoved})
}
