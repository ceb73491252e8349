// controllers/proof_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"academy_circulation/app"
	"academy_circulation/circulation"
	"academy_circulation/db"
)

type ProofController struct{ repo *db.Repo }

func NewProofController(repo *db.Repo) *ProofController { return &ProofController{repo: repo} }

// Get serves the captured signature image behind a loan's proofRef.
func (pc *ProofController) Get(c *gin.Context) {
	ref := c.Param("ref")
	p, err := pc.repo.GetProof(c.Request.Context(), ref)
	if errors.Is(err, circulation.ErrNoRow) {
		c.JSON(http.StatusNotFound, app.H{"success": false, "message": "Assinatura não encontrada!"})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"success": false, "message": "Erro de conexão com o banco!"})
		return
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	c.Data(http.StatusOK, mediaType, p.Data)
}
