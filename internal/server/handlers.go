package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/docrag-go/internal/assistant"
	"github.com/54b3r/docrag-go/internal/export"
	"github.com/54b3r/docrag-go/internal/extract"
	"github.com/54b3r/docrag-go/internal/ingestion"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/rag"
	"github.com/54b3r/docrag-go/internal/store"
)

// Client-facing error messages.
const (
	msgDocumentNotFound = "Document not found"
	msgNoDocuments      = "No documents found"
	msgNoText           = "Could not extract text from document"
	msgNoContent        = "Document has no text content"
	msgNoChunks         = "No document chunks available for RAG queries. This usually means the documents were uploaded " +
		"before the RAG feature was enabled. Please re-upload your documents to enable query functionality."
	msgDimensionMismatch = "The stored document embeddings were created with a different embedding model. " +
		"Please re-upload your documents to enable query functionality."
	msgLLMUnconfigured = "The language model is not configured. Please set MODEL_PROVIDER and its credentials."
)

// user resolves the account the request acts as. Every request runs as the
// configured guest, created on first use.
func (s *Server) user(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	u, err := s.store.EnsureUser(r.Context(), s.cfg.GuestEmail)
	if err != nil {
		logging.FromContext(r.Context()).Error("guest user lookup failed", slog.Any("error", err))
		writeError(r.Context(), w, http.StatusInternalServerError, "user lookup failed")
		return nil, false
	}
	return u, true
}

// pathID parses the {id} path value.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// handleMe handles GET /api/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, u)
}

// handleUpload handles POST /api/upload. The multipart field "file" carries
// the document; its extension selects the text extractor.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	u, ok := s.user(w, r)
	if !ok {
		return
	}

	tooLarge := func() {
		s.metrics.uploadsTotal.WithLabelValues("too_large").Inc()
		writeError(ctx, w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d KB upload limit", s.cfg.MaxUploadBytes>>10))
	}
	if r.ContentLength > s.cfg.MaxUploadBytes {
		tooLarge()
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	filename := header.Filename
	if !extract.Supported(filename) {
		s.metrics.uploadsTotal.WithLabelValues("unsupported").Inc()
		writeError(ctx, w, http.StatusBadRequest,
			"Unsupported file type. Supported types: "+strings.Join(extract.Extensions(), ", "))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "failed to read upload")
		return
	}

	res, err := s.pipeline.Ingest(ctx, u.ID, filename, data)
	if err != nil {
		switch {
		case errors.Is(err, ingestion.ErrNoText):
			s.metrics.uploadsTotal.WithLabelValues("no_text").Inc()
			writeError(ctx, w, http.StatusBadRequest, msgNoText)
		case errors.Is(err, extract.ErrUnsupported):
			s.metrics.uploadsTotal.WithLabelValues("unsupported").Inc()
			writeError(ctx, w, http.StatusBadRequest, "Unsupported file type")
		case errors.Is(err, extract.ErrInvalid):
			s.metrics.uploadsTotal.WithLabelValues("invalid").Inc()
			writeError(ctx, w, http.StatusBadRequest, "The file could not be read: it is corrupt or not a "+ingestion.DetectFormat(filename)+" file")
		default:
			s.metrics.uploadsTotal.WithLabelValues("error").Inc()
			log.Error("upload failed", slog.String("filename", filename), slog.Any("error", err))
			writeError(ctx, w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	s.metrics.uploadsTotal.WithLabelValues("ok").Inc()
	s.metrics.chunksTotal.WithLabelValues("embedded").Add(float64(res.Embedded))
	s.metrics.chunksTotal.WithLabelValues("unembedded").Add(float64(res.Chunks - res.Embedded))
	log.Info("document uploaded",
		slog.Int64("document_id", res.Document.ID),
		slog.String("filename", filename),
		slog.Int("chunks", res.Chunks),
		slog.Int("embedded", res.Embedded),
		slog.Bool("mirrored", res.Mirrored),
	)
	writeJSON(ctx, w, http.StatusOK, toDocumentResponse(res.Document))
}

// handleSummarize handles POST /api/summarize/{id}.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := s.store.GetDocument(ctx, u.ID, id)
	if err != nil {
		s.storeError(ctx, w, err, msgDocumentNotFound)
		return
	}
	if strings.TrimSpace(doc.Content) == "" {
		writeError(ctx, w, http.StatusBadRequest, msgNoContent)
		return
	}

	sum := s.summarizer.Summarize(ctx, doc.Content)
	s.metrics.summariesTotal.WithLabelValues(string(sum.Method)).Inc()
	if err := s.store.UpdateSummary(ctx, u.ID, id, sum.Text); err != nil {
		s.storeError(ctx, w, err, msgDocumentNotFound)
		return
	}

	writeJSON(ctx, w, http.StatusOK, summaryResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Summary:    sum.Text,
		Method:     sum.Method,
	})
}

// handleListDocuments handles GET /api/documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	docs, err := s.store.ListDocuments(ctx, u.ID)
	if err != nil {
		s.storeError(ctx, w, err, msgDocumentNotFound)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// handleDeleteDocument handles DELETE /api/documents/{id}. The vector store
// mirror is cleaned up best-effort.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteDocument(ctx, u.ID, id); err != nil {
		s.storeError(ctx, w, err, msgDocumentNotFound)
		return
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteDocument(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("vector store mirror delete failed",
				slog.Int64("document_id", id),
				slog.Any("error", err),
			)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleQuery handles POST /api/query. Degraded answers (no match, provider
// not configured or failing) are returned with 200; only scope problems are
// errors.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(ctx, w, http.StatusBadRequest, "query is required")
		return
	}

	u, ok := s.user(w, r)
	if !ok {
		return
	}
	docs, err := s.store.ScopeDocuments(ctx, u.ID)
	if err != nil {
		log.Error("query scope failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to load documents")
		return
	}

	q := rag.Query{Text: req.Query}
	if req.DocumentID != nil {
		q.DocumentID = *req.DocumentID
	}

	start := time.Now()
	answer, err := s.querier.Query(ctx, q, docs)
	if err != nil {
		outcome := "error"
		if rag.IsClientError(err) {
			outcome = "rejected"
		}
		s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
		switch {
		case errors.Is(err, rag.ErrNotFound):
			writeError(ctx, w, http.StatusNotFound, msgNoDocuments)
		case errors.Is(err, rag.ErrNoChunks):
			writeError(ctx, w, http.StatusBadRequest, msgNoChunks)
		case errors.Is(err, rag.ErrDimensionMismatch):
			writeError(ctx, w, http.StatusConflict, msgDimensionMismatch)
		default:
			log.Error("query failed", slog.Any("error", err))
			writeError(ctx, w, http.StatusInternalServerError, "query failed")
		}
		return
	}

	s.metrics.queryRequestsTotal.WithLabelValues(string(answer.Outcome)).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(string(answer.Outcome)).Observe(time.Since(start).Seconds())
	log.Info("query answered",
		slog.String("outcome", string(answer.Outcome)),
		slog.Int64("document_id", answer.DocumentID),
		slog.Int("evidence", len(answer.RelevantChunks)),
	)
	writeJSON(ctx, w, http.StatusOK, answer)
}

// handleChat handles POST /api/chat requests. It streams the model's reply
// using Server-Sent Events (SSE) so the UI can render tokens as they arrive.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(ctx, w, http.StatusBadRequest, "message is required")
		return
	}
	if !s.chat.Configured() {
		writeError(ctx, w, http.StatusServiceUnavailable, msgLLMUnconfigured)
		return
	}
	u, ok := s.user(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers so the client receives a streaming response.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	sw := &sseWriter{w: w, flusher: flusher}
	err := s.chat.Chat(ctx, u.ID, req.Message, sw)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		logging.FromContext(ctx).Warn("chat stream failed", slog.String("outcome", outcome), slog.Any("error", err))
		sw.event("error", err.Error())
		return
	}
	// Signal stream completion.
	sw.event("done", "[DONE]")
}

// handleGrammar handles POST /api/grammar.
func (s *Server) handleGrammar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req grammarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(ctx, w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := s.chat.CheckGrammar(ctx, req.Text)
	if err != nil {
		if errors.Is(err, assistant.ErrNotConfigured) {
			writeError(ctx, w, http.StatusServiceUnavailable, msgLLMUnconfigured)
			return
		}
		logging.FromContext(ctx).Warn("grammar check failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusBadGateway, "Error checking grammar: "+err.Error())
		return
	}
	writeJSON(ctx, w, http.StatusOK, res)
}

// handleExport handles POST /api/export. The response is a file download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := export.Normalize(req.Format)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Unsupported export format. Use json or txt.")
		return
	}
	u, ok := s.user(w, r)
	if !ok {
		return
	}

	ids := req.DocumentIDs
	if len(ids) == 0 {
		listed, err := s.store.ListDocuments(ctx, u.ID)
		if err != nil {
			s.storeError(ctx, w, err, msgDocumentNotFound)
			return
		}
		for _, d := range listed {
			ids = append(ids, d.ID)
		}
	}

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		d, err := s.store.GetDocument(ctx, u.ID, id)
		if err != nil {
			s.storeError(ctx, w, err, fmt.Sprintf("Document %d not found", id))
			return
		}
		docs = append(docs, *d)
	}
	if len(docs) == 0 {
		writeError(ctx, w, http.StatusNotFound, msgNoDocuments)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, time.Now())))
	if err := export.Write(w, format, docs); err != nil {
		logging.FromContext(ctx).Error("export write failed", slog.Any("error", err))
	}
}

// storeError maps store errors to 404 or 500.
func (s *Server) storeError(ctx context.Context, w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, notFoundMsg)
		return
	}
	logging.FromContext(ctx).Error("store error", slog.Any("error", err))
	writeError(ctx, w, http.StatusInternalServerError, "internal error")
}
