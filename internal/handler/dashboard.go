package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"standup-tracker/internal/dashboard"
	"standup-tracker/internal/middleware"
	"standup-tracker/internal/model"
	"standup-tracker/internal/profile"
	"standup-tracker/internal/standup"
	"standup-tracker/internal/stats"

	"github.com/gin-gonic/gin"
)

// DashboardHandler keeps one mounted view-model per signed-in user.
// GET /api/dashboard is the mount point: it replaces any previous
// instance, so filter state resets the way a page re-mount would.
type DashboardHandler struct {
	repo     *standup.Repository
	resolver *profile.Resolver
	agg      *stats.Aggregator

	mu  sync.Mutex
	vms map[string]*dashboard.ViewModel
}

func NewDashboardHandler(repo *standup.Repository, resolver *profile.Resolver, agg *stats.Aggregator) *DashboardHandler {
	return &DashboardHandler{
		repo:     repo,
		resolver: resolver,
		agg:      agg,
		vms:      make(map[string]*dashboard.ViewModel),
	}
}

// Mount handles GET /api/dashboard.
func (h *DashboardHandler) Mount(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vm := dashboard.NewViewModel(h.repo, h.resolver, h.agg, ident)
	h.mu.Lock()
	if old := h.vms[ident.ID]; old != nil {
		old.Unmount()
	}
	h.vms[ident.ID] = vm
	h.mu.Unlock()

	if err := vm.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": vm.LastError()})
		return
	}
	c.JSON(http.StatusOK, vm.Render())
}

// Entries handles GET /api/dashboard/entries.
func (h *DashboardHandler) Entries(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": vm.VisibleEntries(), "users": vm.UniqueUsers()})
}

type filterRequest struct {
	Search   string `json:"search"`
	AuthorID string `json:"author_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// SetFilter handles PUT /api/dashboard/filter. From/To are dates
// (2006-01-02); the range is inclusive of both days.
func (h *DashboardHandler) SetFilter(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	from, okFrom := parseDay(req.From, false)
	to, okTo := parseDay(req.To, true)
	if !okFrom || !okTo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	vm.SetSearch(req.Search)
	vm.SetAuthorFilter(req.AuthorID)
	vm.SetDateRange(from, to)
	c.JSON(http.StatusOK, gin.H{"entries": vm.VisibleEntries()})
}

type overlayRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Anchor string `json:"anchor"`
}

// OpenOverlay handles POST /api/dashboard/overlay.
func (h *DashboardHandler) OpenOverlay(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	var req overlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	vm.OpenOverlay(req.Kind, req.Anchor)
	c.JSON(http.StatusOK, gin.H{"overlay": vm.Overlay()})
}

// CloseOverlay handles DELETE /api/dashboard/overlay.
func (h *DashboardHandler) CloseOverlay(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	vm.CloseOverlay()
	c.JSON(http.StatusOK, gin.H{"overlay": vm.Overlay()})
}

// CreateEntry handles POST /api/entries.
func (h *DashboardHandler) CreateEntry(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	var fields model.EntryFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	entry, err := vm.CreateEntry(c.Request.Context(), fields)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": vm.LastError()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpdateEntry handles PUT /api/entries/:id.
func (h *DashboardHandler) UpdateEntry(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	var fields model.EntryFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := vm.EditEntry(c.Request.Context(), c.Param("id"), fields); err != nil {
		c.JSON(statusFor(err), gin.H{"error": vm.LastError()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteEntry handles DELETE /api/entries/:id.
func (h *DashboardHandler) DeleteEntry(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	if err := vm.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": vm.LastError()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Stats handles GET /api/stats.
func (h *DashboardHandler) Stats(c *gin.Context) {
	vm, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": vm.Stats()})
}

// current finds the mounted view-model for the request's identity,
// mounting lazily when a mutation arrives before the dashboard was
// opened in this session.
func (h *DashboardHandler) current(c *gin.Context) (*dashboard.ViewModel, bool) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	// Check-and-insert under one lock so two racing first requests
	// cannot each register a view-model; only the winner loads.
	h.mu.Lock()
	vm := h.vms[ident.ID]
	fresh := vm == nil
	if fresh {
		vm = dashboard.NewViewModel(h.repo, h.resolver, h.agg, ident)
		h.vms[ident.ID] = vm
	}
	h.mu.Unlock()

	if fresh {
		if err := vm.Load(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": vm.LastError()})
			return nil, false
		}
	}
	return vm, true
}

func (h *DashboardHandler) unmount(userID string) {
	h.mu.Lock()
	vm := h.vms[userID]
	delete(h.vms, userID)
	h.mu.Unlock()
	if vm != nil {
		vm.Unmount()
	}
}

func statusFor(err error) int {
	if errors.Is(err, standup.ErrNoRowsMatched) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func parseDay(s string, endOfDay bool) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}
