// Package database embed dosyası — migration SQL dosyalarını binary'ye gömer.
// Deploy edilen binary'nin yanında migration dosyası taşımaya gerek kalmaz.
package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedFS embed.FS

// EmbeddedMigrations, migrations/ dizinini kök alan dosya sistemi.
// Doğrudan New'e verilir — aynı parametre testlerde os.DirFS de olabilir.
var EmbeddedMigrations = func() fs.FS {
	sub, err := fs.Sub(embeddedFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}()
