package worker

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"ok": true,
		})
	})

	// processing counters, for quick operational checks without Prometheus

	r.GET("/metricsz", func(c *gin.Context) {
		snap := w.metrics.Snapshot()

		c.JSON(http.StatusOK, gin.H{
			"claimed":       snap.Claimed,
			"done":          snap.Done,
			"failed":        snap.Failed,
			"retried":       snap.Retried,
			"deadLettered":  snap.DeadLettered,
			"avgDurationMs": snap.AverageDuration.Milliseconds(),
			"maxDurationMs": snap.MaxDuration.Milliseconds(),
			"uptimeSec":     int64(snap.Uptime.Seconds()),
		})
	})

	// readiness: worker is able to claim + process

	r.GET("/readyz", func(c *gin.Context) {
		w.readyMu.RLock()
		ready := w.ready
		w.readyMu.RUnlock()

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return r
}
