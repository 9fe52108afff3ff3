package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"innscanner/archive"
	"innscanner/config"
	"innscanner/metrics"
	"innscanner/parser"
	"innscanner/pipeline"
	"innscanner/registry"
)

func newScanner(cfg *config.Config, rec *metrics.Service) *parser.Scanner {
	var r metrics.Recorder
	if rec != nil {
		r = rec
	}
	return parser.NewScanner(cfg.ScannerOptions(r))
}

// page данные шаблона index.html
type page struct {
	State   ResponseState
	Message string
	Report  *pipeline.Report
	Upload  string
}

func messageOf(state ResponseState) string {
	switch d := state.Data.(type) {
	case string:
		return d
	case map[string]interface{}:
		if m, ok := d["message"].(string); ok {
			return m
		}
	}
	return ""
}

// respond отдает HTML странице браузера и JSON остальным клиентам
func (s *Server) respond(c *gin.Context, code int, state ResponseState, report *pipeline.Report) {
	state.Timestamp = time.Now()
	switch c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) {
	case gin.MIMEHTML:
		c.HTML(code, "index.html", page{State: state, Message: messageOf(state), Report: report, Upload: s.uploadedName()})
	default:
		c.JSON(code, state)
	}
}

func (s *Server) uploadedName() string {
	if _, err := os.Stat(s.cfg.Workspace.ArchivePath); err != nil {
		return ""
	}
	return filepath.Base(s.cfg.Workspace.ArchivePath)
}

func (s *Server) index(c *gin.Context) {
	state := ResponseState{Status: StatusSuccess}
	if s.uploadedName() == "" {
		state.Data = "Пожалуйста, загрузите ZIP архив."
	}
	state.Timestamp = time.Now()
	c.HTML(http.StatusOK, "index.html", page{State: state, Message: messageOf(state), Upload: s.uploadedName()})
}

// upload сохраняет архив в workspace, принимается только ZIP
func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respond(c, http.StatusRequestEntityTooLarge, ResponseState{Status: StatusError, Error: "Архив слишком большой"}, nil)
			return
		}
		s.respond(c, http.StatusBadRequest, ResponseState{Status: StatusError, Error: fmt.Sprintf("Ошибка получения файла: %v", err)}, nil)
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".zip") {
		s.respond(c, http.StatusBadRequest, ResponseState{Status: StatusError, Error: "Недопустимый тип файла. Разрешен только ZIP (.zip)"}, nil)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.respond(c, http.StatusBadRequest, ResponseState{Status: StatusError, Error: fmt.Sprintf("Ошибка чтения файла: %v", err)}, nil)
		return
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil || !isZip(mt) {
		s.respond(c, http.StatusBadRequest, ResponseState{Status: StatusError, Error: "Файл не является ZIP архивом"}, nil)
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		s.respond(c, http.StatusInternalServerError, ResponseState{Status: StatusError, Error: err.Error()}, nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := saveFile(src, s.cfg.Workspace.ArchivePath); err != nil {
		s.log.Error("Ошибка сохранения архива", "error", err)
		s.respond(c, http.StatusInternalServerError, ResponseState{Status: StatusError, Error: fmt.Sprintf("Ошибка сохранения файла: %v", err)}, nil)
		return
	}

	s.log.Info("Архив загружен", "name", fileHeader.Filename, "size", fileHeader.Size)
	s.respond(c, http.StatusOK, ResponseState{
		Status: StatusSuccess,
		Data: map[string]interface{}{
			"original_name": fileHeader.Filename,
			"size":          fileHeader.Size,
			"message":       fmt.Sprintf("Архив успешно загружен: %s", fileHeader.Filename),
		},
	}, nil)
}

// isZip принимает и подтипы ZIP (jar, docx и т.п.), распаковка у них одна
func isZip(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func saveFile(src io.Reader, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".part"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// process распаковывает загруженный архив и строит отчет
func (s *Server) process(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.pipeline.Process(c.Request.Context(), s.cfg.Workspace.ArchivePath, s.cfg.Workspace.ExtractDir)
	switch {
	case errors.Is(err, pipeline.ErrNoArchive):
		s.respond(c, http.StatusBadRequest, ResponseState{Status: StatusError, Error: "Пожалуйста, загрузите ZIP архив."}, nil)
		return
	case errors.Is(err, archive.ErrCorruptArchive), errors.Is(err, archive.ErrUnsafePath):
		s.respond(c, http.StatusUnprocessableEntity, ResponseState{Status: StatusError, Error: fmt.Sprintf("Ошибка: %v", err)}, nil)
		return
	case errors.Is(err, registry.ErrNotFound):
		msg := fmt.Sprintf("Файл %s не найден.", s.cfg.Registry.Path)
		s.respond(c, http.StatusOK, ResponseState{Status: StatusError, Data: report, Error: msg}, report)
		return
	case err != nil:
		s.log.Error("Ошибка обработки архива", "error", err)
		s.respond(c, http.StatusInternalServerError, ResponseState{Status: StatusError, Data: report, Error: fmt.Sprintf("Ошибка: %v", err)}, report)
		return
	}

	state := ResponseState{Status: StatusSuccess, Data: report}
	if len(report.Warnings) > 0 {
		state.Status = StatusWarning
		state.Error = strings.Join(report.Warnings, " ")
	}
	s.respond(c, http.StatusOK, state, report)
}

func (s *Server) cleanup(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := archive.Clear(s.cfg.Workspace.ArchivePath, s.cfg.Workspace.ExtractDir); err != nil {
		s.respond(c, http.StatusInternalServerError, ResponseState{Status: StatusError, Error: err.Error()}, nil)
		return
	}
	s.log.Info("Временные файлы удалены")
	s.respond(c, http.StatusOK, ResponseState{Status: StatusSuccess, Data: "Временные файлы удалены."}, nil)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, ResponseState{
		Status:    "healthy",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"service":  "innscan",
			"registry": s.pipeline.Registry.String(),
		},
	})
}

func (s *Server) getCacheMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, ResponseState{
		Status:    StatusSuccess,
		Data:      s.tables.GetMetrics(),
		Timestamp: time.Now(),
	})
}

func (s *Server) clearCache(c *gin.Context) {
	s.tables.Clear()
	c.JSON(http.StatusOK, ResponseState{
		Status:    StatusSuccess,
		Data:      "Cache cleared successfully",
		Timestamp: time.Now(),
	})
}
