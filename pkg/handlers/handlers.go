// Package handlers exposes sessions over HTTP with gin.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"scan-fill/pkg/apperr"
	"scan-fill/pkg/models"
	"scan-fill/pkg/services/document"
	"scan-fill/pkg/services/extract"
	"scan-fill/pkg/services/merge"
	"scan-fill/pkg/services/sheet"
	"scan-fill/pkg/session"
	"scan-fill/pkg/store"
)

// ExportName is the file name offered for downloads.
const ExportName = "updated_data.xlsx"

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server wires sessions, scanning and history into HTTP handlers.
type Server struct {
	sessions  *session.Manager
	scanner   *document.Scanner
	history   store.Recorder
	policy    merge.Policy
	maxUpload int64
}

// NewServer creates a Server. A nil history disables recording.
func NewServer(sessions *session.Manager, scanner *document.Scanner, history store.Recorder, policy merge.Policy, maxUpload int64) *Server {
	if history == nil {
		history = store.Nop{}
	}
	return &Server{
		sessions:  sessions,
		scanner:   scanner,
		history:   history,
		policy:    policy,
		maxUpload: maxUpload,
	}
}

// Register adds the routes to r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", s.health)

	r.POST("/sessions", s.createSession)
	r.GET("/sessions/:id", s.getSession)
	r.DELETE("/sessions/:id", s.deleteSession)
	r.POST("/sessions/:id/scans", s.scan)
	r.POST("/sessions/:id/merge", s.merge)
	r.GET("/sessions/:id/rows", s.rows)
	r.GET("/sessions/:id/export", s.export)
	r.GET("/sessions/:id/history", s.listHistory)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"engine":   s.scanner.Engine(),
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) createSession(c *gin.Context) {
	header, data, err := s.upload(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeError(c, apperr.InvalidInput("only .xlsx spreadsheets are supported"))
		return
	}

	ds, err := sheet.Read(bytes.NewReader(data))
	if err != nil {
		writeError(c, apperr.Wrap(err, apperr.CodeInvalidInput, "failed to load spreadsheet"))
		return
	}

	sess := s.sessions.Create(header.Filename, ds)
	log.Printf("[session] %s created from %s (%d columns, %d rows)", sess.ID, header.Filename, len(ds.Schema), ds.Len())

	c.JSON(http.StatusCreated, gin.H{
		"id":     sess.ID,
		"source": sess.SourceName,
		"schema": ds.Schema,
		"rows":   ds.Rows,
	})
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	ds := sess.Dataset()
	pending := 0
	if p, ok := sess.Pending(); ok {
		pending = len(p.Candidates)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      sess.ID,
		"source":  sess.SourceName,
		"schema":  ds.Schema,
		"rows":    ds.Rows,
		"pending": pending,
	})
}

func (s *Server) deleteSession(c *gin.Context) {
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) scan(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	header, data, err := s.upload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	scan, err := s.scanner.Scan(c.Request.Context(), document.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		switch {
		case document.Unavailable(err):
			log.Printf("[scan] %s: %v", sess.ID, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"warning": "Text recognition is not available. Check that the OCR engine is installed and configured.",
				"error":   err.Error(),
				"code":    apperr.CodeRecognitionUnavailable,
			})
		case errors.Is(err, document.ErrUnsupportedType), errors.Is(err, document.ErrUnreadable):
			writeError(c, apperr.Wrap(err, apperr.CodeInvalidInput, "cannot read scan"))
		default:
			writeError(c, fmt.Errorf("scan failed: %w", err))
		}
		return
	}

	res := extract.Extract(scan.Text, sess.Dataset().Schema)
	sess.Stage(session.Pending{Scan: scan, Candidates: res.Rows, Dropped: res.Dropped})

	store.Best(c.Request.Context(), s.history, &models.ScanRecord{
		SessionID:  sess.ID,
		Action:     models.ActionScan,
		FileName:   scan.FileName,
		Engine:     scan.Engine,
		Pages:      scan.Pages,
		TextLength: len(scan.Text),
		Candidates: len(res.Rows),
	})

	c.JSON(http.StatusOK, gin.H{
		"scan":          scan,
		"candidates":    res.Rows,
		"lines":         res.Lines,
		"dropped_lines": res.Dropped,
	})
}

func (s *Server) merge(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	policy := s.policy
	if q := c.Query("on_unmatched"); q != "" {
		p, err := merge.ParsePolicy(q)
		if err != nil {
			writeError(c, apperr.Wrap(err, apperr.CodeInvalidInput, "invalid on_unmatched"))
			return
		}
		policy = p
	}

	stats, pending, ok := sess.Apply(policy)
	if !ok {
		writeError(c, apperr.New(apperr.CodeConflict, "no scanned rows are waiting to be merged"))
		return
	}
	log.Printf("[merge] %s: %d updated, %d appended, %d ignored (%s)", sess.ID, stats.Updated, stats.Appended, stats.Ignored, stats.Policy)

	store.Best(c.Request.Context(), s.history, &models.ScanRecord{
		SessionID:   sess.ID,
		Action:      models.ActionMerge,
		FileName:    pending.Scan.FileName,
		Engine:      pending.Scan.Engine,
		Candidates:  len(pending.Candidates),
		OnUnmatched: string(stats.Policy),
		Updated:     stats.Updated,
		Appended:    stats.Appended,
		Ignored:     stats.Ignored,
	})

	ds := sess.Dataset()
	c.JSON(http.StatusOK, gin.H{
		"stats":  stats,
		"schema": ds.Schema,
		"rows":   ds.Rows,
	})
}

func (s *Server) rows(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	criteria := make(map[string]string)
	for col, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			criteria[col] = values[0]
		}
	}
	c.JSON(http.StatusOK, gin.H{"rows": sess.Filter(criteria)})
}

func (s *Server) export(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := sheet.Write(sess.Dataset(), &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportName))
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}

func (s *Server) listHistory(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	records, err := s.history.List(c.Request.Context(), sess.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []models.ScanRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, apperr.NotFound("session"))
		return nil, false
	}
	return sess, true
}

// multipartSlack covers the form boundaries and part headers around the file.
const multipartSlack = 1 << 20

// upload reads the multipart "file" field, enforcing the size cap.
func (s *Server) upload(c *gin.Context) (*multipart.FileHeader, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+multipartSlack)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.InvalidInput("request body exceeds the %.1f MB limit", float64(s.maxUpload)/(1<<20))
		}
		return nil, nil, apperr.InvalidInput("no file uploaded")
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		return nil, nil, apperr.InvalidInput("file size (%.1f MB) exceeds the %.1f MB limit",
			float64(header.Size)/(1<<20), float64(s.maxUpload)/(1<<20))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return header, data, nil
}

func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperr.Code(err)})
}
