package server

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codescribe-ai/codescribe/pkg/archive"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
)

const (
	// ModeDocumentation generates documentation for the uploaded codebase.
	ModeDocumentation = "documentation"

	// ModeCodeGeneration generates a program from uploaded documentation.
	ModeCodeGeneration = "code_generation"
)

// handleGenerate accepts a codebase archive, runs the selected pipeline
// over it and responds with the job record and result archive path.
func (s *Server) handleGenerate(c *gin.Context) {
	if s.pipeline == nil {
		errorJSON(c, http.StatusServiceUnavailable, "no pipeline configured")
		return
	}

	if s.cfg.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.cfg.MaxUploadBytes {
			errorJSON(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}

	mode := c.PostForm("mode")
	if mode == "" {
		mode = ModeDocumentation
	}
	if mode != ModeDocumentation && mode != ModeCodeGeneration {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	problemStatement := c.PostForm("problem_statement")
	if mode == ModeCodeGeneration && strings.TrimSpace(problemStatement) == "" {
		errorJSON(c, http.StatusBadRequest, "problem_statement is required for code generation")
		return
	}

	upload, err := c.FormFile("file")
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "missing file upload")
		return
	}
	if !archive.Supported(upload.Filename) {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("unsupported archive type: %s", upload.Filename))
		return
	}

	jobID := uuid.New().String()
	ctx := logging.WithJobID(c.Request.Context(), jobID)

	uploadDir := filepath.Join(s.cfg.WorkDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		errorJSON(c, http.StatusInternalServerError, "failed to prepare upload directory")
		return
	}

	archivePath := filepath.Join(uploadDir, jobID+strings.ToLower(filepath.Ext(upload.Filename)))
	if strings.HasSuffix(strings.ToLower(upload.Filename), ".tar.gz") {
		archivePath = filepath.Join(uploadDir, jobID+".tar.gz")
	}
	if err := c.SaveUploadedFile(upload, archivePath); err != nil {
		errorJSON(c, http.StatusRequestEntityTooLarge, "failed to store upload")
		return
	}
	defer os.Remove(archivePath)

	inputDir := filepath.Join(uploadDir, jobID)
	if err := archive.Unpack(archivePath, inputDir); err != nil {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("failed to unpack archive: %v", err))
		return
	}
	// The unpacked input is removed once the pipeline has consumed it.
	defer os.RemoveAll(inputDir)

	outputDir := filepath.Join(s.cfg.WorkDir, "outputs", jobID)
	zipPath := filepath.Join(s.cfg.WorkDir, "outputs", jobID+"_output.zip")

	job := &interfaces.Job{
		ID:        jobID,
		Mode:      mode,
		Status:    interfaces.JobRunning,
		InputPath: inputDir,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		errorJSON(c, http.StatusInternalServerError, "failed to record job")
		return
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		s.failJob(c, job, fmt.Errorf("failed to prepare output directory: %w", err))
		return
	}

	if err := s.pipeline(ctx, mode, inputDir, outputDir, problemStatement); err != nil {
		s.failJob(c, job, err)
		return
	}

	if err := archive.PackZip(outputDir, zipPath); err != nil {
		s.failJob(c, job, fmt.Errorf("failed to pack results: %w", err))
		return
	}

	job.Status = interfaces.JobCompleted
	job.OutputPath = zipPath
	if err := s.store.UpdateJob(ctx, job); err != nil {
		errorJSON(c, http.StatusInternalServerError, "failed to update job")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      jobID,
		"mode":    mode,
		"status":  job.Status,
		"archive": fmt.Sprintf("/api/outputs/%s/archive", jobID),
	})
}

func (s *Server) failJob(c *gin.Context, job *interfaces.Job, err error) {
	job.Status = interfaces.JobFailed
	job.Error = err.Error()
	if updateErr := s.store.UpdateJob(c.Request.Context(), job); updateErr != nil && s.logger != nil {
		s.logger.Error(c.Request.Context(), "Failed to record job failure", map[string]interface{}{
			"job_id": job.ID,
			"error":  updateErr.Error(),
		})
	}
	errorJSON(c, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleListJobs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			errorJSON(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	jobs, err := s.store.ListJobs(c.Request.Context(), limit)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}

	c.JSON(http.StatusOK, job)
}

// outputDir resolves the output directory for a job ID, guarding against
// IDs that look like paths.
func (s *Server) outputDir(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid job id")
	}
	dir := filepath.Join(s.cfg.WorkDir, "outputs", id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("no outputs for job %s", id)
	}
	return dir, nil
}

// handleOutputFiles lists the job's output directory when the path is
// empty and returns a single file's content otherwise.
func (s *Server) handleOutputFiles(c *gin.Context) {
	dir, err := s.outputDir(c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}

	rel := strings.Trim(c.Param("path"), "/")
	if rel != "" {
		s.serveOutputFile(c, dir, rel)
		return
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) serveOutputFile(c *gin.Context, dir, rel string) {
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		errorJSON(c, http.StatusBadRequest, "invalid file path")
		return
	}

	content, err := os.ReadFile(target)
	if err != nil {
		errorJSON(c, http.StatusNotFound, "file not found")
		return
	}

	if !utf8.Valid(content) {
		errorJSON(c, http.StatusBadRequest, "file is not text")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":    rel,
		"content": string(content),
	})
}

func (s *Server) handleGetArchive(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.outputDir(id); err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}

	zipPath := filepath.Join(s.cfg.WorkDir, "outputs", id+"_output.zip")
	if _, err := os.Stat(zipPath); err != nil {
		errorJSON(c, http.StatusNotFound, "archive not found")
		return
	}

	c.FileAttachment(zipPath, id+"_output.zip")
}
