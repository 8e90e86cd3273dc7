// Package cliutil holds the plumbing shared by the terrain CLIs: .env
// defaults, config loading, bounding-box flags, fatal error reporting and
// the run summary table.
package cliutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"github.com/pterm/pterm"

	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
)

// Environment variables read by the CLIs.
const (
	EnvConfig     = "TERRAIN_CONFIG"
	EnvDB         = "TERRAIN_DB"
	EnvOutputRoot = "TERRAIN_OUTPUT_ROOT"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// LoadEnv reads .env from the working directory if it exists.
func LoadEnv() {
	_ = godotenv.Load()
}

// FlagOrEnv returns flagValue when set, otherwise the value of key.
func FlagOrEnv(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(key)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err with a stack trace and exits 1.
func Fatal(ctx context.Context, msg string, err error) {
	logger.ErrorContext(ctx, msg, slog.Any("error", xerrors.New(err)))
	os.Exit(1)
}

// LoadConfig loads path, or the defaults file when path is empty and the
// file exists, or built-in defaults otherwise.
func LoadConfig(path string) (*config.GroundConfig, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.EmptyGroundConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadGroundConfig(path)
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat". An empty string selects
// every footprint.
func ParseBBox(s string) (l1records.Bounds, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return l1records.Everywhere(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return l1records.Bounds{}, fmt.Errorf("bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return l1records.Bounds{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := l1records.Bounds{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if err := b.Validate(); err != nil {
		return l1records.Bounds{}, err
	}
	return b, nil
}

// OutputDirs lists the directories outputs may be written to: the working
// directory, the temp directory and TERRAIN_OUTPUT_ROOT when set.
func OutputDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs, os.TempDir())
	if root := os.Getenv(EnvOutputRoot); root != "" {
		dirs = append(dirs, root)
	}
	return dirs
}

// IsNoData reports whether err means the bounding box held no footprints.
func IsNoData(err error) bool {
	return errors.Is(err, l1records.ErrNoData)
}

// Summary renders label/value rows as a table.
func Summary(title string, rows [][2]string) (string, error) {
	data := pterm.TableData{{"", title}}
	for _, r := range rows {
		data = append(data, []string{r[0], r[1]})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// PrintSummary writes the summary table to stdout.
func PrintSummary(title string, rows [][2]string) {
	out, err := Summary(title, rows)
	if err != nil {
		logger.Warn("render summary", slog.Any("error", err))
		return
	}
	fmt.Println(out)
}
