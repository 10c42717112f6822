package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poem-mood/services"
)

// adminJobs ordnet jedem Admin-Endpunkt den Unterbefehl der Binary zu.
var adminJobs = map[string]string{
	"/import_poems":     "import",
	"/enrich":           "enrich",
	"/extract_keywords": "extract-keywords",
	"/refine":           "refine",
	"/consolidate":      "consolidate",
}

func (s *Server) setupAdminRoutes(rg *gin.RouterGroup) {
	for path, command := range adminJobs {
		rg.POST(path, s.handleJob(command))
	}
}

func (s *Server) jobFor(command string, c *gin.Context) services.Job {
	job := services.Job{Name: command}
	if command == "import" && s.opts.CSVPath != "" {
		job.Args = append(job.Args, s.opts.CSVPath)
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && command != "import" && command != "consolidate" {
		job.Args = append(job.Args, "--limit", strconv.Itoa(limit))
	}
	if command == "refine" && c.Query("all") == "true" {
		job.Args = append(job.Args, "--all")
	}
	return job
}

func (s *Server) handleJob(command string) gin.HandlerFunc {
	return func(c *gin.Context) {
		job := s.jobFor(command, c)
		log := s.logger.With(zap.String("job", command), zap.String("request_id", c.GetString("request_id")))

		res, err := s.opts.Jobs.Run(c.Request.Context(), job)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"ok": true, "stdout": res.Stdout, "stderr": res.Stderr})
		case errors.Is(err, services.ErrJobNotFound):
			log.Error("Job executable not found", zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Script não encontrado: " + command})
		case errors.Is(err, services.ErrJobTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"ok": false, "error": "Tempo limite excedido", "stdout": res.Stdout, "stderr": res.Stderr})
		default:
			log.Error("Job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error(), "stdout": res.Stdout, "stderr": res.Stderr})
		}
	}
}
