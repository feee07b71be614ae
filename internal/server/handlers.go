package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/kineticdata/peripherals-ldap/internal/ldap"
)

// CountResponse is the body returned by POST /count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// RetrieveResponse is the body returned by POST /retrieve. Record is null
// when nothing matched.
type RetrieveResponse struct {
	Record *ldap.Record `json:"record"`
}

// StructuresResponse is the body returned by GET /structures.
type StructuresResponse struct {
	Structures []string `json:"structures"`
}

// StructureResponse is the body returned by GET /structures/:name.
type StructureResponse struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "adapter": s.bridge.Name()})
}

func (s *Server) count(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	count, err := s.bridge.Count(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: count})
}

func (s *Server) retrieve(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	record, err := s.bridge.Retrieve(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RetrieveResponse{Record: record})
}

func (s *Server) search(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	list, err := s.bridge.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (s *Server) structures(c *gin.Context) {
	names, err := s.bridge.Structures(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, StructuresResponse{Structures: names})
}

func (s *Server) structure(c *gin.Context) {
	name := c.Param("name")

	fields, err := s.bridge.StructureFields(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, StructureResponse{Name: name, Fields: fields})
}

// bindRequest decodes the JSON request body. It writes a 400 response and
// returns false when the body is unusable.
func bindRequest(c *gin.Context) (*ldap.Request, bool) {
	var req ldap.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid request body",
			RequestID: RequestID(c),
		})
		return nil, false
	}

	if req.Structure == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "structure is required",
			RequestID: RequestID(c),
		})
		return nil, false
	}

	return &req, true
}

// respondError writes err with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)

	body := ErrorResponse{
		Error:     err.Error(),
		Kind:      string(ldap.KindOf(err)),
		RequestID: RequestID(c),
	}

	var ldapErr *ldap.LDAPError
	if errors.As(err, &ldapErr) && ldapErr.Message != "" {
		body.Error = ldapErr.Message
	}

	tflog.SubsystemWarn(c.Request.Context(), Subsystem, "Request failed", map[string]any{
		"path":   c.FullPath(),
		"status": status,
		"error":  err.Error(),
	})

	c.JSON(status, body)
}

// StatusFor maps a bridge error to an HTTP status code.
func StatusFor(err error) int {
	switch ldap.KindOf(err) {
	case ldap.KindMissingParameter:
		return http.StatusBadRequest
	case ldap.KindMultipleResults:
		return http.StatusConflict
	case ldap.KindDirectorySearch:
		return http.StatusBadGateway
	case ldap.KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
