package app

import (
	"gorm.io/gorm"

	csvrepo "github.com/yungbote/csvshare-backend/internal/data/repos/csvfile"
	userrepo "github.com/yungbote/csvshare-backend/internal/data/repos/user"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type Repos struct {
	User    userrepo.UserRepo
	CSVFile csvrepo.CSVFileRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:    userrepo.NewUserRepo(db, log),
		CSVFile: csvrepo.NewCSVFileRepo(db, log),
	}
}
