package main

import (
	"context"
	"log"

	"github.com/hllmltyl/geri-donusum/internal/config"
	"github.com/hllmltyl/geri-donusum/internal/db"
	"github.com/hllmltyl/geri-donusum/internal/point"
)

// Starter set of collection points around Osmaniye. Seeded points are
// system-authored and ship pre-verified.
var seedPoints = []point.RecyclingPoint{
	{Title: "Pil Kutusu", Category: point.CategoryBattery, Lat: 37.0408458, Lng: 36.2204845},
	{Title: "Cam Kumbarası", Category: point.CategoryGlass, Lat: 37.0572, Lng: 36.2265},
	{Title: "Plastik Konteyneri", Category: point.CategoryPlastic, Lat: 37.0595, Lng: 36.2225},
	{Title: "Kağıt Toplama", Category: point.CategoryPaper, Lat: 37.0560, Lng: 36.2250},
	{Title: "Elektronik Atık", Category: point.CategoryElectronics, Lat: 37.0580, Lng: 36.2280},
}

func main() {
	cfg := config.Load()

	pool, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	store := point.NewPostgresStore(pool, nil)
	ctx := context.Background()

	for _, p := range seedPoints {
		p.Verified = true
		p.CreatedBy = point.SystemAuthor
		created, err := store.Create(ctx, p)
		if err != nil {
			log.Fatalf("seed %q: %v", p.Title, err)
		}
		log.Printf("seeded %s (%s)", created.Title, created.ID)
	}
}
