package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fragmentado/catalog/internal/config"
	"github.com/fragmentado/catalog/internal/entrypoint"
	"github.com/fragmentado/catalog/internal/songlink"
	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/sync"
)

// SpotifySyncCommand fetches the importable catalog from Spotify and
// prints it. With -import it also pulls everything into the store.
type SpotifySyncCommand struct {
	Import          bool
	FallbackAlbumID string
	JSON            bool
	Timeout         time.Duration
}

func NewSpotifySyncCommand() *SpotifySyncCommand {
	return &SpotifySyncCommand{}
}

// ParseFlags parses command line flags.
func (cmd *SpotifySyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("spotify-sync", flag.ExitOnError)

	fs.BoolVar(&cmd.Import, "import", false, "Import every candidate instead of only listing them")
	fs.StringVar(&cmd.FallbackAlbumID, "fallback-album", "", "Album id for tracks whose album has no catalog match")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the result as JSON")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Overall timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s spotify-sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the artist's Spotify tracks missing from the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the sync command.
func (cmd *SpotifySyncCommand) Run() error {
	cfg := config.NewConfig()

	spotifyCfg := spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		ArtistID:     cfg.Spotify.ArtistID,
		Market:       cfg.Spotify.Market,
	}
	if !spotifyCfg.Configured() {
		return fmt.Errorf("SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_ARTIST_ID must be set")
	}

	contentStore, _, err := entrypoint.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	defer contentStore.Close()

	client := spotify.NewClient(spotifyCfg.ClientID, spotifyCfg.ClientSecret)
	engine := sync.NewEngine(contentStore, client, songlink.NewClient(), spotifyCfg)

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	result, err := engine.FetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	if !cmd.Import {
		if cmd.JSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		fmt.Printf("Artist %s: %d albums, %d importable tracks\n", result.ArtistID, result.TotalAlbums, len(result.Candidates))
		for _, candidate := range result.Candidates {
			fmt.Printf("  %-24s %-40s %s\n", candidate.ID, candidate.Title, candidate.ReleaseDate)
		}
		return nil
	}

	importResult, err := engine.BulkImport(ctx, result.Candidates, cmd.FallbackAlbumID, func(current, total int) {
		fmt.Printf("\rImporting %d/%d", current, total)
	})
	if importResult != nil && importResult.Total > 0 {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("import aborted after %d releases: %w", len(importResult.Imported), err)
	}

	if cmd.JSON {
		return json.NewEncoder(os.Stdout).Encode(importResult)
	}
	fmt.Printf("Imported %d, skipped %d duplicates, skipped %d without album\n",
		len(importResult.Imported), importResult.SkippedDuplicate, importResult.SkippedNoAlbum)
	return nil
}
