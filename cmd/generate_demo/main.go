// Command generate_demo creates a demo catalog with sample albums and
// releases to develop the admin UI against.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/store/dbstore"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo catalog at %s...", *dbPath)

	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	s, err := dbstore.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer s.Close()

	if _, err := s.SetSettings(entities.Settings{ArtistName: "FRAGMENTADO"}); err != nil {
		log.Fatalf("Failed to save settings: %v", err)
	}

	albums, err := s.SetAlbums(demoAlbums())
	if err != nil {
		log.Fatalf("Failed to save albums: %v", err)
	}
	log.Printf("Saved %d albums", len(albums))

	releases, err := s.SetReleases(demoReleases())
	if err != nil {
		log.Fatalf("Failed to save releases: %v", err)
	}
	log.Printf("Saved %d releases", len(releases))

	log.Printf("Demo catalog generated successfully")
}

func demoAlbums() []entities.Album {
	return []entities.Album{
		{ID: "primeras-luces", Title: "Primeras Luces", Year: "2023"},
		{ID: "ciudad-dormida", Title: "Ciudad Dormida", Year: "2024"},
	}
}

func demoReleases() []entities.Release {
	spotifyIcon := "/icons/spotify.svg"
	return []entities.Release{
		{
			ID:          "amanecer",
			AlbumID:     "primeras-luces",
			Title:       "Amanecer",
			Year:        "2023",
			ReleaseDate: "2023-05-12",
			Platforms: []entities.Platform{
				{Title: "spotify", Icon: spotifyIcon, Link: "https://open.spotify.com/track/demo-amanecer"},
			},
		},
		{
			ID:          "calles-vacias",
			AlbumID:     "ciudad-dormida",
			Title:       "Calles Vacías",
			Year:        "2024",
			ReleaseDate: "2024-02-09",
			Platforms: []entities.Platform{
				{Title: "spotify", Icon: spotifyIcon, Link: "https://open.spotify.com/track/demo-calles"},
			},
		},
		{
			ID:         "lo-que-viene",
			AlbumID:    "ciudad-dormida",
			Title:      "Lo Que Viene",
			IsUpcoming: true,
		},
	}
}
