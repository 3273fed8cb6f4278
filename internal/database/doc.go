// Package database provides the data access layer for the service.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── cards/           # Committed imports: import runs and stored cards
//	└── audit/           # Audit event log
//
// Each sub-package provides a Repository built on the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./cardforge.db", logger)
//
//	cardsRepo := cards.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
//	run := &entities.ImportRun{SessionID: id, FileName: "gear.md"}
//	err = cardsRepo.SaveImport(ctx, run, processedCards)
//
// # Interface Implementations
//
//   - cards.Repository: implements importers.CardSaver and http.CardStore
//   - audit.Repository: backs audit.Service
//
// Imports are insert-only. Committing the same file twice stores two
// independent runs; nothing is matched against existing rows.
package database
