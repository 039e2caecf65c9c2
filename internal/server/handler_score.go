package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/pdftext"
	"go.uber.org/zap"
)

const (
	msgMissingData  = "Job description and resume data are required."
	msgOnlyPDF      = "Only PDF files are allowed."
	msgPDFFailed    = "Failed to process PDF: %s"
	msgScoreFailed  = "Failed to calculate score."
	msgBodyTooLarge = "Request body is too large."
)

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)

	in, err := parseInput(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("rejecting request", zap.Int64("limit", tooLarge.Limit), zap.Error(err))
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}

		log.Warn("rejecting request", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgMissingData)
		return
	}
	defer in.file.Close()

	if in.file != nil && !isPDF(in.file.name) {
		log.Warn("rejecting upload", zap.String("filename", in.file.name))
		writeError(w, http.StatusBadRequest, msgOnlyPDF)
		return
	}

	if in.jd.IsEmpty() || (in.resume.IsEmpty() && in.file == nil) {
		log.Error(msgMissingData)
		writeError(w, http.StatusBadRequest, msgMissingData)
		return
	}

	resume := in.resume
	if resume == nil {
		resume = document.New()
	}

	if in.file != nil {
		text, err := s.pdf.Extract(ctx, in.file.file, in.file.size)
		if err != nil {
			var extractionErr *pdftext.ExtractionError
			log.Error("extracting pdf",
				zap.String("filename", in.file.name),
				zap.Bool("parser_failure", errors.As(err, &extractionErr)),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf(msgPDFFailed, err.Error()))
			return
		}

		resume.Set(document.PDFSection, document.Text(text))
	}

	logDropped(log, fieldJD, in.jd)
	logDropped(log, fieldResume, resume)

	jdText := document.Flatten(in.jd)
	resumeText := document.Flatten(resume)
	if jdText == "" || resumeText == "" {
		log.Error(msgMissingData, zap.String("reason", "no text after normalization"))
		writeError(w, http.StatusBadRequest, msgMissingData)
		return
	}

	score, err := s.scorer.Score(ctx, jdText, resumeText)
	if err != nil {
		log.Error("calculating score", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgScoreFailed)
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{Score: score})
}

func logDropped(log *zap.Logger, side string, doc *document.Document) {
	for _, name := range doc.Unsupported() {
		c, _ := doc.Get(name)
		log.Debug("dropping section without text",
			zap.String("side", side),
			zap.String("section", name),
			zap.String("value", c.Raw()),
		)
	}
}
