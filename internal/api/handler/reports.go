package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/boothboard/internal/api/middleware"
	"github.com/kiranshivaraju/boothboard/internal/api/response"
	"github.com/kiranshivaraju/boothboard/internal/orgtree"
	"github.com/kiranshivaraju/boothboard/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Reporter defines the report operations the handlers depend on.
type Reporter interface {
	Tree(ctx context.Context, clientID *uuid.UUID) (*orgtree.Node, error)
	Usage(ctx context.Context, q report.Query) (*report.UsageReport, error)
	Summary(ctx context.Context, q report.Query) (*report.SummaryReport, error)
	Export(ctx context.Context, q report.Query, w io.Writer) error
}

// NewTreeHandler returns an http.HandlerFunc for GET /api/v1/tree.
func NewTreeHandler(svc Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := resolveClient(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		tree, err := svc.Tree(r.Context(), clientID)
		if err != nil {
			writeReportError(w, r, "tree", err)
			return
		}
		response.JSON(w, tree)
	}
}

// NewUsageHandler returns an http.HandlerFunc for GET /api/v1/reports/usage.
func NewUsageHandler(svc Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseReportQuery(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		rep, err := svc.Usage(r.Context(), q)
		if err != nil {
			writeReportError(w, r, "usage", err)
			return
		}
		response.JSON(w, rep)
	}
}

// NewSummaryHandler returns an http.HandlerFunc for GET /api/v1/reports/summary.
func NewSummaryHandler(svc Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseReportQuery(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		rep, err := svc.Summary(r.Context(), q)
		if err != nil {
			writeReportError(w, r, "summary", err)
			return
		}
		response.JSON(w, rep)
	}
}

// NewExportHandler returns an http.HandlerFunc for GET /api/v1/reports/usage.xlsx.
// The workbook is buffered so a failure can still be reported as JSON.
func NewExportHandler(svc Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseReportQuery(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), q, &buf); err != nil {
			writeReportError(w, r, "export", err)
			return
		}
		response.Attachment(w, xlsxContentType, exportFilename(q))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			slog.Warn("write export failed", "error", err)
		}
	}
}

func exportFilename(q report.Query) string {
	if q.Range == nil {
		return "booth-usage.xlsx"
	}
	return fmt.Sprintf("booth-usage_%s_%s.xlsx", q.Range.StartDay(), q.Range.EndDay())
}

func writeReportError(w http.ResponseWriter, r *http.Request, kind string, err error) {
	if errors.Is(err, report.ErrInvalidRange) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	clientID, _ := mw.GetClientScope(r)
	slog.Error("report failed", "kind", kind, "error", err, "client_id", clientID)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
