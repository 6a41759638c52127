package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcalder/pocketbank/internal/audit"
	"github.com/mcalder/pocketbank/internal/config"
	"github.com/mcalder/pocketbank/internal/database"
	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/service"
	"github.com/mcalder/pocketbank/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o755); err != nil {
		log.Fatalf("mkdir audit dir: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	acctRepo := repository.NewAccountRepo(db)
	trail := audit.New(cfg.Audit.Path)

	guard := &service.Guard{Accounts: acctRepo}
	processor := &service.Processor{Balances: acctRepo, Trail: trail}
	accounts := &service.AccountService{Accounts: acctRepo, Trail: trail}
	reporter := &service.Reporter{Accounts: acctRepo}

	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Repos{Accounts: acctRepo, Trail: trail},
		tui.Services{Guard: guard, Processor: processor, Accounts: accounts, Reporter: reporter},
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
