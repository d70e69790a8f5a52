package handler

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pdfqa/internal/conversation"
	"pdfqa/internal/indexer"
	"pdfqa/internal/model"
	"pdfqa/internal/pkg/pdfextract"
	"pdfqa/internal/repository"
	"pdfqa/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

// CollectionDeleter removes a document's vector collection.
type CollectionDeleter interface {
	Delete(ctx context.Context, documentID uint) error
}

type DocumentHandler struct {
	docRepo   *repository.DocumentRepository
	publisher indexer.JobPublisher
	vectors   CollectionDeleter
	threads   conversation.Store
	pdfDir    string
	textDir   string
}

func NewDocumentHandler(
	docRepo *repository.DocumentRepository,
	publisher indexer.JobPublisher,
	vectors CollectionDeleter,
	threads conversation.Store,
	pdfDir, textDir string,
) *DocumentHandler {
	return &DocumentHandler{
		docRepo:   docRepo,
		publisher: publisher,
		vectors:   vectors,
		threads:   threads,
		pdfDir:    pdfDir,
		textDir:   textDir,
	}
}

// Upload accepts a multipart PDF, stores the file and its extracted text,
// records the document, and enqueues indexing. The response does not wait
// for indexing: questions asked before the index exists get a distinct
// "not ready" error from the ask endpoint.
func (h *DocumentHandler) Upload(c *gin.Context) {
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

	uniqueID := strings.ReplaceAll(uuid.New().String(), "-", "")
	storedFilename := uniqueID + "_" + filepath.Base(file.Filename)
	pdfPath := filepath.Join(h.pdfDir, storedFilename)
	baseName := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	textPath := filepath.Join(h.textDir, uniqueID+"_"+baseName+".txt")

	if err := c.SaveUploadedFile(file, pdfPath); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to store file")
		return
	}

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		_ = os.Remove(pdfPath)
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	// An empty extraction is still a valid upload; indexing treats it as
	// nothing to index and leaves the collection absent.
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		_ = os.Remove(pdfPath)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to store extracted text")
		return
	}

	doc := &model.Document{
		OriginalFilename: file.Filename,
		StoredFilename:   storedFilename,
		PDFPath:          pdfPath,
		TextPath:         textPath,
	}
	if err := h.docRepo.Create(c.Request.Context(), doc); err != nil {
		_ = os.Remove(pdfPath)
		_ = os.Remove(textPath)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to record document")
		return
	}

	job := indexer.Job{DocumentID: doc.ID, TextPath: textPath}
	if err := h.publisher.Publish(c.Request.Context(), job); err != nil {
		log.Printf("enqueue index job for document %d failed: %v", doc.ID, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to schedule indexing")
		return
	}

	response.Created(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.docRepo.GetByID(c.Request.Context(), docID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	offset := parseIntQuery(c, "skip", 0)
	limit := parseIntQuery(c, "limit", 10)

	docs, err := h.docRepo.List(c.Request.Context(), offset, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

// Delete removes the document record, its stored files, its vector
// collection, and its conversation thread. The document id is never reused.
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	ctx := c.Request.Context()

	doc, err := h.docRepo.GetByID(ctx, docID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	if err := h.vectors.Delete(ctx, docID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete vector collection failed")
		return
	}
	if err := h.threads.Delete(ctx, conversation.ThreadID(docID)); err != nil {
		log.Printf("delete thread for document %d failed: %v", docID, err)
	}
	removeFile(doc.PDFPath)
	removeFile(doc.TextPath)

	if err := h.docRepo.Delete(ctx, docID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}

	response.OK(c, gin.H{"deleted_document_id": docID})
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove file %s failed: %v", path, err)
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	s := c.Query(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
