package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1}, nil)
	require.Error(t, err)

	p, err := New(Config{MaxParallel: 2}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, cap(p.limiter))
	require.Equal(t, defaultNavTimeout, p.cfg.NavTimeout)
}

func TestAllocatorOptionsGrowWithConfig(t *testing.T) {
	t.Parallel()

	bare, err := New(Config{}, nil)
	require.NoError(t, err)
	full, err := New(Config{
		Headless:      true,
		UserAgent:     "Mozilla/5.0",
		WindowWidth:   1366,
		WindowHeight:  768,
		DisableImages: true,
		ExecPath:      "/usr/bin/chromium",
	}, nil)
	require.NoError(t, err)
	require.Len(t, full.allocatorOptions(), len(bare.allocatorOptions())+4)
}

func TestOpenHonorsSessionLimit(t *testing.T) {
	t.Parallel()

	p, err := New(Config{MaxParallel: 1}, nil)
	require.NoError(t, err)
	p.limiter <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Open(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.release()
	require.Empty(t, p.limiter)
}

func TestClosedPageRejectsActions(t *testing.T) {
	t.Parallel()

	released := 0
	pg := &Page{
		tab:     context.Background(),
		cancel:  func() {},
		release: func() { released++ },
	}
	require.NoError(t, pg.Close())
	require.NoError(t, pg.Close())
	require.Equal(t, 1, released)

	require.ErrorIs(t, pg.Navigate(context.Background(), "https://example.com"), ErrClosed)
	_, err := pg.Location(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestScriptsQuoteSelectors(t *testing.T) {
	t.Parallel()

	js := clickScript(`button[aria-label*="Share"]`, 2)
	require.Contains(t, js, `document.querySelectorAll("button[aria-label*=\"Share\"]")`)
	require.Contains(t, js, "els.length <= 2")

	js = scrollScript("div[role='main']")
	require.Contains(t, js, `document.querySelector("div[role='main']")`)
}
