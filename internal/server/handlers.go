package server

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/batch"
	"github.com/ryoshu-dev/ryoshu/internal/buildinfo"
	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/export"
	"github.com/ryoshu-dev/ryoshu/internal/history"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// receiptInput is one capture as posted by a client: the image as a data
// URI plus whatever fields the user confirmed.
type receiptInput struct {
	ImageData string         `json:"imageData"`
	Date      string         `json:"date"`
	Amount    string         `json:"amount"`
	Store     string         `json:"store"`
	Category  model.Category `json:"category"`
}

func (in receiptInput) build(b *capture.Builder) (model.Receipt, error) {
	f := capture.Fields{Date: in.Date, Amount: in.Amount, Store: in.Store, Category: in.Category}
	if err := f.Check(); err != nil {
		return model.Receipt{}, err
	}
	img, err := capture.ParseDataURI(in.ImageData)
	if err != nil {
		return model.Receipt{}, err
	}
	return b.Build(img, f), nil
}

type batchInput struct {
	// Atomic defaults to true: all receipts are saved or none are.
	Atomic   *bool          `json:"atomic"`
	Receipts []receiptInput `json:"receipts"`
}

func (s *Server) healthz(c *gin.Context) {
	Success(c, gin.H{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) categories(c *gin.Context) {
	Success(c, gin.H{
		"categories": model.Categories(),
		"default":    model.DefaultCategory,
	})
}

func (s *Server) listReceipts(c *gin.Context) {
	rs, err := s.history.Load(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Success(c, gin.H{
		"receipts": rs,
		"summary":  history.Summarize(rs),
	})
}

func (s *Server) getReceipt(c *gin.Context) {
	id := c.Param("id")
	r, ok, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		fail(c, fmt.Errorf("%w: %s", history.ErrNotFound, id))
		return
	}
	Success(c, gin.H{"receipt": r, "warnings": warnings(r)})
}

func warnings(r model.Receipt) []string {
	var out []string
	for _, v := range model.Validate(r) {
		out = append(out, v.Error())
	}
	return out
}

func (s *Server) createReceipt(c *gin.Context) {
	var in receiptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "invalid request body: "+err.Error())
		return
	}
	r, err := in.build(s.builder)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.Put(c.Request.Context(), r); err != nil {
		fail(c, err)
		return
	}
	s.record(activitylog.ActionScan, r.ID, 1, "api")
	Success(c, gin.H{"receipt": r})
}

func (s *Server) commitBatch(c *gin.Context) {
	var in batchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "invalid request body: "+err.Error())
		return
	}
	if len(in.Receipts) == 0 {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "receipts must not be empty")
		return
	}

	acc := batch.New()
	for i, item := range in.Receipts {
		r, err := item.build(s.builder)
		if err != nil {
			fail(c, fmt.Errorf("receipt %d: %w", i, err))
			return
		}
		acc.Append(r)
	}

	atomic := in.Atomic == nil || *in.Atomic
	var (
		res batch.Result
		err error
	)
	if atomic {
		res, err = acc.CommitAtomic(c.Request.Context(), s.store)
	} else {
		res, err = acc.Commit(c.Request.Context(), s.store)
	}
	if res.Confirmed > 0 {
		s.record(activitylog.ActionCommit, "", res.Confirmed, fmt.Sprintf("api atomic=%t", atomic))
	}
	if err != nil {
		status, code := classify(err)
		_ = c.Error(err)
		c.JSON(status, gin.H{"code": code, "message": err.Error(), "data": res})
		return
	}
	Success(c, res)
}

func (s *Server) editReceipt(c *gin.Context) {
	var ch history.Changes
	if err := c.ShouldBindJSON(&ch); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "invalid request body: "+err.Error())
		return
	}
	f := capture.Fields{Date: ch.Date, Amount: ch.Amount, Store: ch.Store, Category: ch.Category}
	if err := f.Check(); err != nil {
		fail(c, err)
		return
	}
	r, err := s.history.Edit(c.Request.Context(), c.Param("id"), ch)
	if err != nil {
		fail(c, err)
		return
	}
	s.record(activitylog.ActionEdit, r.ID, 1, "api")
	Success(c, gin.H{"receipt": r})
}

func (s *Server) extract(c *gin.Context) {
	var in struct {
		ImageData string `json:"imageData"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "invalid request body: "+err.Error())
		return
	}
	img, err := capture.ParseDataURI(in.ImageData)
	if err != nil {
		fail(c, err)
		return
	}
	cand, err := s.extractor.Extract(c.Request.Context(), img.Data, img.ContentType)
	if err != nil {
		fail(c, err)
		return
	}
	Success(c, gin.H{"extractor": s.extractor.Name(), "candidate": cand})
}

func (s *Server) exportCSV(c *gin.Context) {
	bom := s.exportBOM
	if v, ok := c.GetQuery("bom"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			Error(c, http.StatusBadRequest, CodeInvalidParam, "bom must be a boolean")
			return
		}
		bom = parsed
	}
	s.sendExport(c, "csv", contentTypeCSV, func(buf *bytes.Buffer, rs []model.Receipt) error {
		return export.WriteCSV(buf, rs, export.Options{BOM: bom})
	})
}

func (s *Server) exportXLSX(c *gin.Context) {
	s.sendExport(c, "xlsx", contentTypeXLSX, func(buf *bytes.Buffer, rs []model.Receipt) error {
		return export.WriteXLSX(buf, rs)
	})
}

// sendExport renders every stored receipt, in store order, into memory and
// sends it as a dated attachment. Nothing is written until rendering succeeds.
func (s *Server) sendExport(c *gin.Context, ext, contentType string, render func(*bytes.Buffer, []model.Receipt) error) {
	rs, err := s.store.All(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := render(&buf, rs); err != nil {
		fail(c, err)
		return
	}
	name := export.Filename(s.now(), ext)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, contentType, buf.Bytes())
	s.record(activitylog.ActionExport, "", len(rs), ext)
}
