// controllers/srv.go
package controllers

import (
	"academy_circulation/app"
	"academy_circulation/circulation"
	"academy_circulation/db"
	"academy_circulation/scan"
)

type Srv struct {
	Engine   *circulation.Engine
	Debounce *scan.Debouncer
	Repo     *db.Repo
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		// the repo implements all four circulation ports
		Engine:   circulation.NewEngine(repo, repo, repo, repo),
		Debounce: scan.NewDebouncer(a.RDB, a.Config.ScanWindow),
		Repo:     repo,
	}
}
