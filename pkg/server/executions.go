package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codescribe-ai/codescribe/pkg/sandbox"
)

// initialOutputWindow is how long handleRun waits for the program's first
// output before responding.
const initialOutputWindow = 500 * time.Millisecond

// handleRun starts an interactive sandbox session for a generated Python
// file and returns the execution ID with any initial output.
func (s *Server) handleRun(c *gin.Context) {
	dir, err := s.outputDir(c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}

	file := c.Query("file")
	if file == "" {
		errorJSON(c, http.StatusBadRequest, "file query parameter is required")
		return
	}
	if filepath.Ext(file) != ".py" {
		errorJSON(c, http.StatusBadRequest, "only Python files can be executed")
		return
	}

	target := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(file, "/")))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		errorJSON(c, http.StatusBadRequest, "invalid file path")
		return
	}
	if _, err := os.Stat(target); err != nil {
		errorJSON(c, http.StatusNotFound, "file not found")
		return
	}

	session, err := s.manager.StartFile(c.Request.Context(), target)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	output, running := drainOutput(c.Request.Context(), session, initialOutputWindow)
	c.JSON(http.StatusOK, gin.H{
		"execution_id": session.ID,
		"output":       output,
		"running":      running,
	})
}

func (s *Server) handleExecutionOutput(c *gin.Context) {
	session, ok := s.manager.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "execution not found")
		return
	}

	output, running := drainOutput(c.Request.Context(), session, initialOutputWindow)
	c.JSON(http.StatusOK, gin.H{
		"output":  output,
		"running": running,
	})
}

func (s *Server) handleExecutionInput(c *gin.Context) {
	session, ok := s.manager.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "execution not found")
		return
	}
	if !session.Running() {
		errorJSON(c, http.StatusConflict, "execution has finished")
		return
	}

	var body struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.Send(body.Input); err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) handleExecutionStop(c *gin.Context) {
	if err := s.manager.Stop(c.Request.Context(), c.Param("id")); err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// drainOutput collects output lines until the window elapses or the
// session finishes, and reports whether the process is still running.
func drainOutput(ctx context.Context, session *sandbox.Session, window time.Duration) (string, bool) {
	deadline, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var lines []string
	for {
		line, ok, err := session.ReadLine(deadline)
		if err != nil || !ok {
			break
		}
		lines = append(lines, line)
	}

	output := strings.Join(lines, "\n")
	if len(lines) > 0 {
		output += "\n"
	}
	return output, session.Running()
}
