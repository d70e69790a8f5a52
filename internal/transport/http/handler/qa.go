package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfqa/internal/conversation"
	"pdfqa/internal/pipeline"
	"pdfqa/internal/repository"
	"pdfqa/internal/transport/http/response"
	"pdfqa/internal/vectorstore"
)

type QAHandler struct {
	docRepo *repository.DocumentRepository
	qa      *pipeline.Pipeline
	threads conversation.Store
}

type chatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type askRequest struct {
	Question    string        `json:"question" binding:"required"`
	ChatHistory []chatMessage `json:"chat_history" binding:"dive"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func NewQAHandler(docRepo *repository.DocumentRepository, qa *pipeline.Pipeline, threads conversation.Store) *QAHandler {
	return &QAHandler{docRepo: docRepo, qa: qa, threads: threads}
}

// Ask runs one conversational Q&A turn against a document. A missing vector
// collection maps to 404 so the frontend can show "still indexing"; every
// other pipeline failure already comes back as a well-formed answer payload.
func (h *QAHandler) Ask(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
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

	history := make([]conversation.Message, len(req.ChatHistory))
	for i, m := range req.ChatHistory {
		history[i] = conversation.Message{Role: m.Role, Content: m.Content}
	}

	answer, err := h.qa.Ask(ctx, docID, req.Question, history)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound,
				fmt.Sprintf("vector index for document %d not found; it may still be indexing or indexing failed", docID))
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		return
	}

	response.OK(c, askResponse{Answer: answer})
}

// History returns the server-side thread for a document so a frontend can
// rehydrate a conversation.
func (h *QAHandler) History(c *gin.Context) {
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

	messages, err := h.threads.History(ctx, conversation.ThreadID(docID))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		return
	}
	response.OK(c, gin.H{"messages": messages})
}
