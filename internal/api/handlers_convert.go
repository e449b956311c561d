package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/pipeline"
	"github.com/dgallion1/quizforge/internal/segment"
)

// errBadRoute is returned for category/questionType pairs no pipeline serves.
var errBadRoute = errors.New("invalid category or question type")

// routeUpload maps the upload form's category and questionType to a
// document kind and segmentation variant.
func routeUpload(category, questionType string) (convert.Kind, string, error) {
	qt := strings.ToLower(strings.Join(strings.Fields(questionType), " "))
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "mock":
		switch qt {
		case "question":
			return convert.KindQuestions, segment.PolicyMock.Name, nil
		case "solution":
			return convert.KindSolutions, "", nil
		}
		return "", "", fmt.Errorf("%w: %q for Mock", errBadRoute, questionType)
	case "section":
		switch qt {
		case "section, mcq", "section,mcq", "mcq":
			return convert.KindQuestions, segment.PolicyMCQ.Name, nil
		case "passage":
			return convert.KindQuestions, segment.PolicyPassage.Name, nil
		}
		return "", "", fmt.Errorf("%w: %q for Section", errBadRoute, questionType)
	}
	return "", "", fmt.Errorf("%w: category %q", errBadRoute, category)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Upload.MaxBytes
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	category := r.FormValue("category")
	if category == "" {
		jsonError(w, "category is required", http.StatusBadRequest)
		return
	}
	questionType := r.FormValue("questionType")
	if questionType == "" {
		jsonError(w, "questionType is required", http.StatusBadRequest)
		return
	}
	kind, variant, err := routeUpload(category, questionType)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := sanitizeFilename(header.Filename)
	if !convert.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > maxBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", maxBytes), http.StatusRequestEntityTooLarge)
		return
	}

	job := pipeline.NewJob(pipeline.Request{
		OriginalName:  filename,
		Kind:          kind,
		Variant:       variant,
		Render:        s.cfg.Render.Enabled,
		ExtractMedia:  true,
		MathML:        true,
		ExcludeHeader: true,
		XLSX:          s.cfg.Export.XLSX,
		Booklet:       s.cfg.Render.Booklet,
		Zip:           true,
	})
	dir := s.orchestrator.JobDir(job.ID)
	src := filepath.Join(dir, "upload", filename)
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		s.log.Error("create job dir failed", "job_id", job.ID, "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		s.log.Error("store upload failed", "job_id", job.ID, "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	job.Request.Source = src
	job.Request.OutDir = filepath.Join(dir, convert.Slug(convert.NormalizeFilename(filename)))

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "filename", filename, "kind", kind, "variant", variant)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
