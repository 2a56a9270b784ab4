package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/placescraper/internal/config"
	"github.com/JakeFAU/placescraper/internal/runner"
)

type fakeApp struct {
	cfg        *config.Config
	scrapeErr  error
	exportPath string
	closed     bool
}

func (f *fakeApp) Scrape(context.Context) (runner.Summary, error) {
	return runner.Summary{RunID: "run-1", Total: 3, Processed: 3, Records: 4}, f.scrapeErr
}

func (f *fakeApp) Export(_ context.Context, path string) (int, error) {
	f.exportPath = path
	return 4, nil
}

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

// stubApp swaps the package factories; tests using it must not run in parallel.
func stubApp(t *testing.T, fake *fakeApp) {
	t.Helper()
	origLoad, origNew := loadConfig, newApp
	t.Cleanup(func() {
		loadConfig, newApp = origLoad, origNew
		cfgFile = ""
	})
	loadConfig = func(string) (config.Config, error) {
		return config.Load("")
	}
	newApp = func(_ context.Context, cfg *config.Config) (App, error) {
		fake.cfg = cfg
		return fake, nil
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrapeAppliesFlagOverrides(t *testing.T) {
	fake := &fakeApp{}
	stubApp(t, fake)

	out, err := execute(t, "scrape", "-i", "daftar.csv", "-o", "hasil.csv", "-w", "7", "--summary")
	require.NoError(t, err)
	require.True(t, fake.closed)
	require.Equal(t, "daftar.csv", fake.cfg.Input.Path)
	require.Equal(t, "hasil.csv", fake.cfg.Output.Path)
	require.Equal(t, 7, fake.cfg.Scraper.Concurrency)
	require.Contains(t, out, `"run_id": "run-1"`)
}

func TestScrapeCancellationIsNotAnError(t *testing.T) {
	fake := &fakeApp{scrapeErr: context.Canceled}
	stubApp(t, fake)

	_, err := execute(t, "scrape")
	require.NoError(t, err)
	require.True(t, fake.closed)
}

func TestScrapeFailureIsReported(t *testing.T) {
	fake := &fakeApp{scrapeErr: errors.New("store down")}
	stubApp(t, fake)

	_, err := execute(t, "scrape")
	require.ErrorContains(t, err, "store down")
	require.True(t, fake.closed)
}

func TestExportWritesWorkbook(t *testing.T) {
	fake := &fakeApp{}
	stubApp(t, fake)

	out, err := execute(t, "export", "--out", "rekap.xlsx")
	require.NoError(t, err)
	require.Equal(t, "rekap.xlsx", fake.exportPath)
	require.Contains(t, out, "exported 4 rows to rekap.xlsx")
}

func TestConfigErrorStopsCommand(t *testing.T) {
	fake := &fakeApp{}
	stubApp(t, fake)
	loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.New("bad yaml")
	}

	_, err := execute(t, "scrape")
	require.ErrorContains(t, err, "bad yaml")
	require.Nil(t, fake.cfg)
}
