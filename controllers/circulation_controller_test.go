// controllers/circulation_controller_test.go
package controllers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy_circulation/circulation"
	"academy_circulation/models"
	"academy_circulation/scan"
)

type testServer struct {
	router *gin.Engine
	reg    *circulation.MemoryRegistry
	ledger *circulation.MemoryLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := circulation.NewMemoryRegistry()
	dir := circulation.NewMemoryDirectory()
	ledger := circulation.NewMemoryLedger()
	custody := circulation.NewMemoryCustody()

	reg.Add(models.Item{
		ID: "item-1", Kind: models.KindDevice, Identifier: "MBP-001",
		Name: "MacBook Pro 14", Status: models.ItemAvailable, Loanable: true,
	})
	reg.Add(models.Item{
		ID: "item-2", Kind: models.KindBookExemplar, Identifier: "LIV-0042",
		Name: "Dom Casmurro", Status: models.ItemAvailable, Loanable: true,
	})
	dir.Add(models.Borrower{ID: "aluno-1", Name: "Maria Silva", Active: true})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := circulation.NewEngine(reg, dir, ledger, custody)
	cc := NewCirculationController(engine, scan.NewDebouncer(rdb, 2*time.Second))

	r := gin.New()
	r.POST("/api/emprestimos", cc.Checkout)
	r.POST("/api/emprestimos/:id/devolver", cc.Return)
	r.GET("/api/emprestimos", cc.ListLoans)
	r.GET("/api/emprestimos/atrasados", cc.ListOverdue)
	r.POST("/api/devolucoes", cc.ReturnByCode)
	r.POST("/api/scan", cc.Scan)

	return &testServer{router: r, reg: reg, ledger: ledger}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func signatureDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
}

func TestCheckoutEndpoint(t *testing.T) {
	t.Run("legacy field names", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":       "aluno-1",
			"codigo_barras":  "MBP-001",
			"data_retirada":  "2026-03-10",
			"data_devolucao": "2026-03-17",
			"assinatura":     signatureDataURL(),
			"acessorios":     "carregador",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "Empréstimo registrado com sucesso!", out["message"])
		data := out["data"].(map[string]any)
		assert.Equal(t, "item-1", data["itemId"])
		assert.Equal(t, "aluno-1", data["borrowerId"])
		assert.Equal(t, "active", data["status"])
		assert.NotEmpty(t, data["proofRef"])
		assert.Equal(t, "carregador", data["accessories"])
	})

	t.Run("alias field names", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"borrower_id": "aluno-1",
			"device_id":   "item-1",
			"assinatura":  signatureDataURL(),
			"observacao":  "sem acessórios",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, out["success"])
		data := out["data"].(map[string]any)
		assert.Equal(t, "sem acessórios", data["accessories"])
	})

	t.Run("missing signature", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":      "aluno-1",
			"codigo_barras": "MBP-001",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Assinatura obrigatória!", out["message"])
	})

	t.Run("unknown code", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":      "aluno-1",
			"codigo_barras": "X123",
			"assinatura":    signatureDataURL(),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Item não encontrado!", out["message"])
	})

	t.Run("item already loaned", func(t *testing.T) {
		ts := newTestServer(t)
		body := map[string]any{
			"aluno_id":      "aluno-1",
			"codigo_barras": "MBP-001",
			"assinatura":    signatureDataURL(),
		}
		w, _ := ts.do(t, http.MethodPost, "/api/emprestimos", body)
		require.Equal(t, http.StatusOK, w.Code)

		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Item não disponível para empréstimo!", out["message"])
	})

	t.Run("bad date", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":      "aluno-1",
			"codigo_barras": "MBP-001",
			"data_retirada": "10/03/2026",
			"assinatura":    signatureDataURL(),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Data inválida!", out["message"])
	})

	t.Run("due before checkout", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":       "aluno-1",
			"codigo_barras":  "MBP-001",
			"data_retirada":  "2026-03-10",
			"data_devolucao": "2026-03-01",
			"assinatura":     signatureDataURL(),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Data de devolução anterior à retirada!", out["message"])
	})
}

func TestReturnEndpoints(t *testing.T) {
	checkout := func(t *testing.T, ts *testServer, code string) string {
		t.Helper()
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
			"aluno_id":      "aluno-1",
			"codigo_barras": code,
			"assinatura":    signatureDataURL(),
		})
		require.Equal(t, http.StatusOK, w.Code)
		return out["data"].(map[string]any)["id"].(string)
	}

	t.Run("by loan id", func(t *testing.T) {
		ts := newTestServer(t)
		loanID := checkout(t, ts, "MBP-001")

		w, out := ts.do(t, http.MethodPost, fmt.Sprintf("/api/emprestimos/%s/devolver", loanID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "Devolução registrada com sucesso!", out["message"])
		data := out["data"].(map[string]any)
		assert.Equal(t, "returned", data["status"])
		assert.NotEmpty(t, data["returnedAt"])

		// the item is borrowable again
		loanID = checkout(t, ts, "MBP-001")
		assert.NotEmpty(t, loanID)
	})

	t.Run("double return", func(t *testing.T) {
		ts := newTestServer(t)
		loanID := checkout(t, ts, "MBP-001")
		path := fmt.Sprintf("/api/emprestimos/%s/devolver", loanID)

		w, _ := ts.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w, out := ts.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Empréstimo já finalizado!", out["message"])
	})

	t.Run("unknown loan", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/emprestimos/no-such/devolver", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Empréstimo não encontrado!", out["message"])
	})

	t.Run("by scanned code", func(t *testing.T) {
		ts := newTestServer(t)
		loanID := checkout(t, ts, "LIV-0042")

		w, out := ts.do(t, http.MethodPost, "/api/devolucoes", map[string]any{
			"codigo_barras": "LIV-0042",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, loanID, out["data"].(map[string]any)["id"])
	})

	t.Run("by scanned code without active loan", func(t *testing.T) {
		ts := newTestServer(t)
		w, out := ts.do(t, http.MethodPost, "/api/devolucoes", map[string]any{
			"codigo_barras": "LIV-0042",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Nenhum empréstimo ativo encontrado para este item.", out["message"])
	})
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// overdue: past checkout with a past due date
	w, out := ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
		"aluno_id":       "aluno-1",
		"codigo_barras":  "MBP-001",
		"data_retirada":  "2026-01-05",
		"data_devolucao": "2026-01-12",
		"assinatura":     signatureDataURL(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	overdueID := out["data"].(map[string]any)["id"].(string)

	// on-time book loan (due = checkout + 14d, still in the future for as_of)
	w, out = ts.do(t, http.MethodPost, "/api/emprestimos", map[string]any{
		"aluno_id":      "aluno-1",
		"codigo_barras": "LIV-0042",
		"data_retirada": "2026-01-20",
		"assinatura":    signatureDataURL(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	bookID := out["data"].(map[string]any)["id"].(string)

	t.Run("overdue listing", func(t *testing.T) {
		w, out := ts.do(t, http.MethodGet, "/api/emprestimos/atrasados?as_of=2026-01-25", nil)
		require.Equal(t, http.StatusOK, w.Code)
		rows := out["data"].([]any)
		require.Len(t, rows, 1)
		row := rows[0].(map[string]any)
		assert.Equal(t, overdueID, row["id"])
		assert.Equal(t, "overdue", row["derived_status"])
	})

	t.Run("list with derived status filter", func(t *testing.T) {
		w, out := ts.do(t, http.MethodGet, "/api/emprestimos?status=active&as_of=2026-01-25", nil)
		require.Equal(t, http.StatusOK, w.Code)
		rows := out["data"].([]any)
		require.Len(t, rows, 1)
		assert.Equal(t, bookID, rows[0].(map[string]any)["id"])
	})

	t.Run("list all newest first", func(t *testing.T) {
		w, out := ts.do(t, http.MethodGet, "/api/emprestimos", nil)
		require.Equal(t, http.StatusOK, w.Code)
		rows := out["data"].([]any)
		require.Len(t, rows, 2)
		assert.Equal(t, bookID, rows[0].(map[string]any)["id"])
		assert.Equal(t, overdueID, rows[1].(map[string]any)["id"])
	})
}

func TestScanEndpoint(t *testing.T) {
	ts := newTestServer(t)

	t.Run("resolves a known code", func(t *testing.T) {
		w, out := ts.do(t, http.MethodPost, "/api/scan", map[string]any{
			"codigo_barras": "MBP-001",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "item-1", out["data"].(map[string]any)["id"])
	})

	t.Run("duplicate delivery replays the outcome", func(t *testing.T) {
		w, out := ts.do(t, http.MethodPost, "/api/scan", map[string]any{
			"codigo_barras": "MBP-001",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "item-1", out["data"].(map[string]any)["id"])
	})

	t.Run("unknown code", func(t *testing.T) {
		w, out := ts.do(t, http.MethodPost, "/api/scan", map[string]any{
			"codigo_barras": "X123",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Item não encontrado!", out["message"])
	})

	t.Run("empty body", func(t *testing.T) {
		w, out := ts.do(t, http.MethodPost, "/api/scan", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Dados incompletos!", out["message"])
	})
}
