package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timesheets/internal/service"
)

type createIdentityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

type createSiteRequest struct {
	Name string `json:"name"`
}

type siteResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type toggleJobRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h HandlerSet) CreateIdentity(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	identity, err := h.auth.CreateIdentity(c.Request.Context(), actorID(c), service.CreateIdentityInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"identity": newIdentityResponse(identity)})
}

func (h HandlerSet) CreateSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	site, err := h.directory.CreateSite(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"site": siteResponse{ID: site.ID, Name: site.Name, CreatedAt: site.CreatedAt}})
}

func (h HandlerSet) ListSites(c *gin.Context) {
	sites, err := h.directory.ListSites(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]siteResponse, 0, len(sites))
	for _, site := range sites {
		items = append(items, siteResponse{ID: site.ID, Name: site.Name, CreatedAt: site.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.List()})
}

func (h HandlerSet) ToggleJob(c *gin.Context) {
	var req toggleJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	name := c.Param("name")
	if !h.jobs.Toggle(name, *req.Enabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "enabled": *req.Enabled})
}

// RunJob blocks until the task returns. Task failures are logged by the
// registry and do not change the response.
func (h HandlerSet) RunJob(c *gin.Context) {
	name := c.Param("name")
	if !h.jobs.RunManually(c.Request.Context(), name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "ran": true})
}
