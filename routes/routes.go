package routes

import (
	"academy_circulation/app"
	"academy_circulation/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	circ := controllers.NewCirculationController(s.Engine, s.Debounce)
	proofs := controllers.NewProofController(s.Repo)

	// ------------------------------
	// Circulation: checkout / return
	// ------------------------------
	emprestimos := r.Group("/api/emprestimos")
	{
		emprestimos.POST("", circ.Checkout)
		emprestimos.POST("/:id/devolver", circ.Return)
		emprestimos.GET("", circ.ListLoans) // ?status=active|overdue|returned&aluno_id=&item_id=
		emprestimos.GET("/atrasados", circ.ListOverdue)
	}

	// Return by scanned code (or explicit loan id in the body)
	r.POST("/api/devolucoes", circ.ReturnByCode)

	// Debounced code resolution for the scanning UI
	r.POST("/api/scan", circ.Scan)

	// Captured signatures, addressed by the loan's proofRef
	r.GET("/api/assinaturas/:ref", proofs.Get)
}
