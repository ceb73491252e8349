// controllers/circulation_controller.go
package controllers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"academy_circulation/app"
	"academy_circulation/circulation"
	"academy_circulation/models"
	"academy_circulation/scan"
)

type CirculationController struct {
	engine   *circulation.Engine
	debounce *scan.Debouncer
}

func NewCirculationController(engine *circulation.Engine, debounce *scan.Debouncer) *CirculationController {
	return &CirculationController{engine: engine, debounce: debounce}
}

// Checkout request, field names preserved from the legacy clients. The first
// non-empty alias wins.
type CheckoutReq struct {
	AlunoID    string `json:"aluno_id"`
	BorrowerID string `json:"borrower_id"`

	CodigoBarras string `json:"codigo_barras"`
	DeviceID     string `json:"device_id"`
	ItemRef      string `json:"item_ref"`

	DataRetirada  string `json:"data_retirada"`
	DataDevolucao string `json:"data_devolucao"`

	Assinatura string `json:"assinatura"` // data-URL image
	Observacao string `json:"observacao"`
	Acessorios string `json:"acessorios"`
}

func (cc *CirculationController) Checkout(c *gin.Context) {
	var in CheckoutReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}

	checkoutAt, ok := parseDate(in.DataRetirada)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Data inválida!"})
		return
	}
	var dueAt *time.Time
	if in.DataDevolucao != "" {
		d, ok := parseDate(in.DataDevolucao)
		if !ok {
			c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Data inválida!"})
			return
		}
		dueAt = &d
	}

	proof, mediaType := decodeSignature(in.Assinatura)

	loan, err := cc.engine.Checkout(c.Request.Context(), circulation.CheckoutRequest{
		BorrowerID:     firstOf(in.AlunoID, in.BorrowerID),
		ItemID:         in.DeviceID,
		Code:           firstOf(in.CodigoBarras, in.ItemRef),
		CheckoutAt:     checkoutAt,
		DueAt:          dueAt,
		Proof:          proof,
		ProofMediaType: mediaType,
		Accessories:    firstOf(in.Acessorios, in.Observacao),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"success": true,
		"message": "Empréstimo registrado com sucesso!",
		"data":    loan,
	})
}

func (cc *CirculationController) Return(c *gin.Context) {
	loanID := c.Param("id")
	if loanID == "" {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}
	loan, err := cc.engine.Return(c.Request.Context(), loanID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"success": true,
		"message": "Devolução registrada com sucesso!",
		"data":    loan,
	})
}

type ReturnByCodeReq struct {
	EmprestimoID string `json:"emprestimo_id"`
	CodigoBarras string `json:"codigo_barras"`
}

// ReturnByCode closes a loan identified either by id or by scanning the item.
func (cc *CirculationController) ReturnByCode(c *gin.Context) {
	var in ReturnByCodeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}

	var loan *models.Loan
	var err error
	switch {
	case in.EmprestimoID != "":
		loan, err = cc.engine.Return(c.Request.Context(), in.EmprestimoID)
	case in.CodigoBarras != "":
		loan, err = cc.engine.ReturnByCode(c.Request.Context(), in.CodigoBarras)
	default:
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"success": true,
		"message": "Devolução registrada com sucesso!",
		"data":    loan,
	})
}

type loanRow struct {
	models.Loan
	DerivedStatus string `json:"derived_status"`
}

// ListLoans filters by aluno_id / item_id / status, where status matches the
// derived classification (active | overdue | returned) at as_of (default now).
func (cc *CirculationController) ListLoans(c *gin.Context) {
	now := time.Now().UTC()
	if v := c.Query("as_of"); v != "" {
		t, ok := parseDate(v)
		if !ok {
			c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Data inválida!"})
			return
		}
		now = t
	}
	loans, err := cc.engine.ListLoans(c.Request.Context(), circulation.LoanFilter{
		BorrowerID: firstOf(c.Query("aluno_id"), c.Query("borrower_id")),
		ItemID:     c.Query("item_id"),
		Status:     c.Query("status"),
	}, now)
	if err != nil {
		respondErr(c, err)
		return
	}
	rows := make([]loanRow, 0, len(loans))
	for _, l := range loans {
		rows = append(rows, loanRow{Loan: l, DerivedStatus: circulation.ComputeStatus(&l, now)})
	}
	c.JSON(http.StatusOK, app.H{"success": true, "data": rows})
}

// ListOverdue drives the external notification/report feature.
func (cc *CirculationController) ListOverdue(c *gin.Context) {
	asOf := time.Now().UTC()
	if v := c.Query("as_of"); v != "" {
		t, ok := parseDate(v)
		if !ok {
			c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Data inválida!"})
			return
		}
		asOf = t
	}
	rows := make([]loanRow, 0)
	for loan, err := range cc.engine.ListOverdue(c.Request.Context(), asOf) {
		if err != nil {
			respondErr(c, err)
			return
		}
		rows = append(rows, loanRow{Loan: loan, DerivedStatus: circulation.StatusOverdue})
	}
	c.JSON(http.StatusOK, app.H{"success": true, "data": rows})
}

type ScanReq struct {
	CodigoBarras string `json:"codigo_barras"`
	Code         string `json:"code"`
}

// Scan resolves a code for the scanning UI. Duplicate deliveries of the same
// code within the debounce window replay the cached outcome instead of
// counting as a new resolution attempt.
func (cc *CirculationController) Scan(c *gin.Context) {
	var in ScanReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}
	code := strings.TrimSpace(firstOf(in.CodigoBarras, in.Code))
	if code == "" {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "message": "Dados incompletos!"})
		return
	}

	if first, cached := cc.debounce.Observe(c.Request.Context(), code); !first {
		respondResolution(c, cached)
		return
	}

	res := &scan.Resolution{}
	item, err := cc.engine.Resolver().Resolve(c.Request.Context(), code)
	switch {
	case err == nil:
		res.Found = true
		res.Item = item
	case circulation.IsNotFound(err):
		res.Message = "Item não encontrado!"
	default:
		respondErr(c, err)
		return
	}
	cc.debounce.Remember(c.Request.Context(), code, res)
	respondResolution(c, res)
}

func respondResolution(c *gin.Context, res *scan.Resolution) {
	if res.Found {
		c.JSON(http.StatusOK, app.H{"success": true, "data": res.Item})
		return
	}
	c.JSON(http.StatusNotFound, app.H{"success": false, "message": res.Message})
}

// respondErr maps the domain taxonomy onto HTTP. Domain errors are final;
// 503 marks a transient storage failure the caller may retry as-is.
func respondErr(c *gin.Context, err error) {
	var status int
	switch {
	case circulation.IsValidation(err):
		status = http.StatusBadRequest
	case circulation.IsNotFound(err):
		status = http.StatusNotFound
	case circulation.IsConflict(err), circulation.IsState(err):
		status = http.StatusConflict
	case circulation.IsTransient(err):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, app.H{"success": false, "message": userMessage(err)})
}

func userMessage(err error) string {
	var e *circulation.Error
	if errors.As(err, &e) {
		if e.Kind == circulation.KindTransient {
			return "Erro de conexão com o banco!"
		}
		return e.Message
	}
	return "Erro interno!"
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDate accepts the date-only form the legacy UI sends and full RFC 3339.
// An empty string parses to the zero time (engine substitutes now).
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// decodeSignature extracts image bytes from a data-URL. Plain strings are
// kept as raw bytes (typed signatures); malformed base64 counts as missing.
func decodeSignature(s string) ([]byte, string) {
	if s == "" {
		return nil, ""
	}
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return []byte(s), ""
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, ""
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, ""
		}
		return b, strings.TrimSuffix(meta, ";base64")
	}
	return []byte(payload), meta
}
