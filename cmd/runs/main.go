// Command runs lists, shows and deletes ground runs recorded by
// `ground -db`.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/banshee-data/terrain.report/internal/cliutil"
	sqlite "github.com/banshee-data/terrain.report/internal/lidar/storage/sqlite"
	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	dbFile      = flag.String("db", "", "SQLite run store; defaults to $TERRAIN_DB")
	show        = flag.String("show", "", "Show one run and its footprint counts")
	deleteRun   = flag.String("delete", "", "Delete one run and its footprints")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	cliutil.LoadEnv()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("runs"))
		return
	}

	ctx, stop := cliutil.SignalContext()
	defer stop()

	path := cliutil.FlagOrEnv(*dbFile, cliutil.EnvDB)
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}
	// Open creates a missing file; refuse that here.
	if _, err := os.Stat(path); err != nil {
		cliutil.Fatal(ctx, "Run store not found.", err)
	}

	db, err := sqlite.Open(path)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to open run store.", err)
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		cliutil.Fatal(ctx, "Failed to migrate run store.", err)
	}
	store := sqlite.NewRunStore(db)

	switch {
	case *deleteRun != "":
		if err := store.DeleteRun(ctx, *deleteRun); err != nil {
			cliutil.Fatal(ctx, "Failed to delete run.", err)
		}
		fmt.Printf("deleted %s\n", *deleteRun)
	case *show != "":
		if err := showRun(ctx, store, *show); err != nil {
			cliutil.Fatal(ctx, "Failed to show run.", err)
		}
	default:
		if err := listRuns(ctx, store); err != nil {
			cliutil.Fatal(ctx, "Failed to list runs.", err)
		}
	}
}

func listRuns(ctx context.Context, store *sqlite.RunStore) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	rows := make([][2]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, [2]string{
			r.RunID,
			fmt.Sprintf("%s  %s  %d/%d valid", created(r), r.SourcePath, r.ValidGround, r.Footprints),
		})
	}
	cliutil.PrintSummary("runs", rows)
	return nil
}

func showRun(ctx context.Context, store *sqlite.RunStore, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	pts, err := store.Footprints(ctx, id)
	if err != nil {
		return err
	}
	stored := 0
	for _, p := range pts {
		if p.Elevation.Valid {
			stored++
		}
	}
	rows := [][2]string{
		{"run id", run.RunID},
		{"source", run.SourcePath},
		{"created", created(run)},
		{"bounds", run.Bounds.String()},
		{"bins", fmt.Sprint(run.BinCount)},
		{"footprints", fmt.Sprintf("%d (%d stored)", run.Footprints, len(pts))},
		{"valid ground", fmt.Sprintf("%d (%d stored)", run.ValidGround, stored)},
	}
	if len(run.ParamsJSON) > 0 {
		rows = append(rows, [2]string{"params", string(run.ParamsJSON)})
	}
	cliutil.PrintSummary("run", rows)
	return nil
}

func created(r *sqlite.Run) string {
	return time.Unix(0, r.CreatedAtNs).UTC().Format(time.RFC3339)
}
