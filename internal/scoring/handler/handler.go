// Package handler exposes scoring rule management to the dashboard.
package handler

import (
	"net/http"

	"chatdesk_backend/internal/scoring/repository"
	scoringsvc "chatdesk_backend/internal/scoring/service"
	"chatdesk_backend/internal/scoring/transport"
	"chatdesk_backend/platform/httpkit"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	engine *scoringsvc.Engine
	log    *logger.Logger
}

func NewHandler(engine *scoringsvc.Engine, log *logger.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	rules, err := h.engine.ListRules(c.Request.Context(), identity.OrgID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, transport.ToRuleResponse(&rules[i]))
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"rules": out})
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req transport.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	rule, err := h.engine.CreateRule(c.Request.Context(), repository.CreateRuleParams{
		OrganizationID:   identity.OrgID(),
		RuleName:         req.RuleName,
		RuleType:         req.RuleType,
		TriggerCondition: req.TriggerCondition.ToDomain(),
		ScoreChange:      req.ScoreChange,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToRuleResponse(rule))
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule id")
		return
	}

	var req transport.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), identity.OrgID(), id, repository.UpdateRuleParams{
		TriggerCondition: req.TriggerCondition.ToDomain(),
		ScoreChange:      req.ScoreChange,
		IsActive:         *req.IsActive,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusOK, transport.ToRuleResponse(rule))
}

func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.engine.DeleteRule(c.Request.Context(), identity.OrgID(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, "scoring rule deleted")
}
