// Package server exposes the job trigger surface: the pipeline stages as
// named units that can be listed, inspected and kicked off out of schedule.
package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erbolatt/gamewatch/internal/scheduler"
)

type Handler struct {
	sched *scheduler.Scheduler
	db    *pgxpool.Pool
}

func NewHandler(sched *scheduler.Scheduler, db *pgxpool.Pool) *Handler {
	return &Handler{sched: sched, db: db}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		log.Printf("health: db ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Jobs())
}

func (h *Handler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Runs())
}

// TriggerJob запускает задачу вне расписания; выполнение асинхронное.
func (h *Handler) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	id, err := h.sched.Trigger(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}
