// Package database opens and migrates the Gray Logic Scribe run-history
// database, a single SQLite file holding one row per export run.
//
// WAL mode lets the API read history while a finished run is being
// recorded; the busy timeout covers the rare overlap. Migrations are
// embedded in the binary by the migrations package and applied in
// version order, each in its own transaction.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
