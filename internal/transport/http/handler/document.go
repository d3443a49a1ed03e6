package handler

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docbrain/internal/app"
	"docbrain/internal/pkg/pdfextract"
	"docbrain/internal/platform/rabbitmq"
	"docbrain/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	ingest    *app.IngestService
	documents *app.DocumentService
	publisher *rabbitmq.IngestPublisher
}

func NewDocumentHandler(ingest *app.IngestService, documents *app.DocumentService, publisher *rabbitmq.IngestPublisher) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, documents: documents, publisher: publisher}
}

type CreateDocumentRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Name      string `json:"name"`
	Content   string `json:"content" binding:"required"`
}

// Create stores the raw text and queues processing; the response carries the
// document in status "uploading" and the job id for tracing.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	h.createAndQueue(c, app.CreateDocumentInput{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Content:   req.Content,
	})
}

// UploadPDF accepts a multipart form with "file" (PDF), "project_id" and
// optional "name", extracts the text and queues processing.
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	projectID := parseUintForm(c, "project_id")
	if projectID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid project id")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	h.createAndQueue(c, app.CreateDocumentInput{
		ProjectID: projectID,
		Name:      name,
		Content:   text,
	})
}

func (h *DocumentHandler) createAndQueue(c *gin.Context, input app.CreateDocumentInput) {
	doc, err := h.ingest.CreateDocument(input)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		}
		return
	}

	job := rabbitmq.IngestJob{JobID: uuid.NewString(), DocumentID: doc.ID}
	if err := h.publisher.Publish(c.Request.Context(), job); err != nil {
		// The document row survives; the operator can re-queue it later.
		log.Printf("queue ingest job for document %d failed: %v", doc.ID, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "queue document processing failed")
		return
	}

	response.Accepted(c, gin.H{"document": doc, "job_id": job.JobID})
}

func (h *DocumentHandler) List(c *gin.Context) {
	projectID := parseUintQuery(c, "project_id")
	docs, err := h.documents.List(projectID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid project id")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		}
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.documents.Get(docID)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.documents.Delete(docID); err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}

func parseUintQuery(c *gin.Context, key string) uint {
	s := c.Query(key)
	if s == "" {
		return 0
	}
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}

func parseUintForm(c *gin.Context, key string) uint {
	s := c.PostForm(key)
	if s == "" {
		return 0
	}
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}
