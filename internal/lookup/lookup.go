// Package lookup resolves one work item into place records by driving a live
// page: open the search view, read the result list, and fall back to opening
// candidates one by one when the list cannot be read.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/extract"
	"github.com/JakeFAU/placescraper/internal/geo"
	"github.com/JakeFAU/placescraper/internal/metrics"
	"github.com/JakeFAU/placescraper/internal/places"
)

// Config tunes timing and limits of a lookup.
type Config struct {
	SearchURL         string
	MaxResults        int
	RenderWait        time.Duration
	ScrollAttempts    int
	ScrollPause       time.Duration
	DetailRetries     int
	DetailWait        time.Duration
	DetailSettle      time.Duration
	RetryPause        time.Duration
	CoordPollInterval time.Duration
	CoordPollTimeout  time.Duration
	ShareWait         time.Duration
}

// Pacer throttles navigation.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Service assembles place records for work items.
type Service struct {
	cfg    Config
	ext    *extract.Extractor
	pacer  Pacer
	logger *zap.Logger
}

// New constructs a Service. pacer may be nil to disable pacing.
func New(cfg Config, ext *extract.Extractor, pacer Pacer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 1
	}
	if cfg.CoordPollInterval <= 0 {
		cfg.CoordPollInterval = 500 * time.Millisecond
	}
	return &Service{cfg: cfg, ext: ext, pacer: pacer, logger: logger}
}

// SearchURL builds the search locator for a query.
func SearchURL(base, query string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(query)
}

// Lookup resolves item on page. It always returns at least one record: the
// extracted candidates, or a single failure record. A non-nil error means the
// page may be unusable and should be replaced before the next item.
func (s *Service) Lookup(ctx context.Context, page places.Page, item places.WorkItem) ([]places.PlaceRecord, error) {
	target := SearchURL(s.cfg.SearchURL, item.Query)
	logger := s.logger.With(zap.String("id", item.ID), zap.String("query", item.Query))

	if s.pacer != nil {
		if err := s.pacer.Wait(ctx, target); err != nil {
			return failure(item, err), fmt.Errorf("pace %q: %w", item.Query, err)
		}
	}
	if err := page.Navigate(ctx, target); err != nil {
		return failure(item, err), fmt.Errorf("open search %q: %w", item.Query, err)
	}
	if err := sleep(ctx, s.cfg.RenderWait); err != nil {
		return failure(item, err), err
	}
	s.scrollResults(ctx, page, logger)

	root, err := page.Snapshot(ctx)
	if err != nil {
		return failure(item, err), fmt.Errorf("snapshot %q: %w", item.Query, err)
	}

	if recs := s.fromList(item, root, logger); len(recs) > 0 {
		observeFields(recs)
		return recs, nil
	}

	recs, err := s.fromDetails(ctx, page, item, root, target, logger)
	if err != nil {
		if len(recs) > 0 {
			return recs, err
		}
		return failure(item, err), err
	}
	if len(recs) == 0 {
		logger.Info("no candidates found")
		return []places.PlaceRecord{places.FailureRecord(item, places.ErrNoCandidates.Error())}, nil
	}
	observeFields(recs)
	return recs, nil
}

func observeFields(recs []places.PlaceRecord) {
	for _, r := range recs {
		if r.Failed() {
			continue
		}
		metrics.ObserveField("display_name", r.DisplayName.Source)
		metrics.ObserveField("category", r.Category.Source)
		metrics.ObserveField("rating", r.Rating.Source)
		metrics.ObserveField("address", r.Address.Source)
		metrics.ObserveField("phone", r.Phone.Source)
		metrics.ObserveField("website", r.Website.Source)
		metrics.ObserveField("latitude", r.Latitude.Source)
		metrics.ObserveField("open_status", r.OpenStatus.Source)
		metrics.ObserveField("operating_hours", r.OperatingHours.Source)
	}
}

func failure(item places.WorkItem, err error) []places.PlaceRecord {
	return []places.PlaceRecord{places.FailureRecord(item, err.Error())}
}

func (s *Service) scrollResults(ctx context.Context, page places.Page, logger *zap.Logger) {
	panel := s.ext.Selectors().ResultsPanel
	for i := 0; i < s.cfg.ScrollAttempts; i++ {
		if err := page.ScrollToEnd(ctx, panel); err != nil {
			logger.Debug("scroll results failed", zap.Int("attempt", i), zap.Error(err))
			return
		}
		if err := sleep(ctx, s.cfg.ScrollPause); err != nil {
			return
		}
	}
}

// fromList extracts up to MaxResults distinct candidates from the result list.
func (s *Service) fromList(item places.WorkItem, root places.Node, logger *zap.Logger) []places.PlaceRecord {
	var recs []places.PlaceRecord
	seen := make(map[string]struct{})
	for i, card := range s.ext.Cards(root) {
		if len(recs) >= s.cfg.MaxResults {
			break
		}
		rec, ok := s.ext.Card(item, card)
		if !ok {
			logger.Debug("discarding card without name", zap.Int("index", i))
			continue
		}
		if !unique(seen, rec) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func unique(seen map[string]struct{}, rec places.PlaceRecord) bool {
	key := strings.ToLower(rec.DisplayName.Value) + "|" + strings.ToLower(rec.Address.Value)
	if _, dup := seen[key]; dup {
		return false
	}
	seen[key] = struct{}{}
	return true
}

// fromDetails opens candidates one at a time, or reads the view as a single
// place when the search jumped straight to one.
func (s *Service) fromDetails(
	ctx context.Context,
	page places.Page,
	item places.WorkItem,
	root places.Node,
	target string,
	logger *zap.Logger,
) ([]places.PlaceRecord, error) {
	sel := s.ext.Selectors()
	cardSel, n := "", 0
	for _, cs := range sel.DetailCards {
		if k := len(root.Find(cs)); k > 0 {
			cardSel, n = cs, k
			break
		}
	}

	if n == 0 {
		if err := page.WaitFor(ctx, sel.DetailMarker, s.cfg.DetailWait); err != nil {
			logger.Debug("no result list and no place view", zap.Error(err))
			return nil, nil
		}
		rec, ok, err := s.readDetail(ctx, page, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []places.PlaceRecord{places.FailureRecord(item, "place view has no name")}, nil
		}
		return []places.PlaceRecord{rec}, nil
	}

	limit := min(n, s.cfg.MaxResults)
	var recs []places.PlaceRecord
	seen := make(map[string]struct{})
	for i := 0; i < limit; i++ {
		rec, err := s.openCandidate(ctx, page, item, cardSel, i)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return recs, ctxErr
			}
			logger.Debug("candidate failed", zap.Int("index", i), zap.Error(err))
		} else if unique(seen, rec) {
			recs = append(recs, rec)
		}
		if i+1 < limit {
			s.returnToList(ctx, page, target, cardSel, logger)
		}
	}
	return recs, nil
}

var errNoName = errors.New("candidate has no name")

func (s *Service) openCandidate(ctx context.Context, page places.Page, item places.WorkItem, cardSel string, i int) (places.PlaceRecord, error) {
	if err := page.Click(ctx, cardSel, i); err != nil {
		return places.PlaceRecord{}, fmt.Errorf("open candidate %d: %w", i, err)
	}
	marker := s.ext.Selectors().DetailMarker
	var err error
	for attempt := 0; attempt < max(1, s.cfg.DetailRetries); attempt++ {
		if err = page.WaitFor(ctx, marker, s.cfg.DetailWait); err == nil {
			break
		}
		if serr := sleep(ctx, s.cfg.RetryPause); serr != nil {
			return places.PlaceRecord{}, serr
		}
	}
	if err != nil {
		return places.PlaceRecord{}, fmt.Errorf("candidate %d never loaded: %w", i, err)
	}
	rec, ok, err := s.readDetail(ctx, page, item)
	if err != nil {
		return places.PlaceRecord{}, err
	}
	if !ok {
		return places.PlaceRecord{}, errNoName
	}
	return rec, nil
}

func (s *Service) readDetail(ctx context.Context, page places.Page, item places.WorkItem) (places.PlaceRecord, bool, error) {
	if err := sleep(ctx, s.cfg.DetailSettle); err != nil {
		return places.PlaceRecord{}, false, err
	}
	coords := s.coordinates(ctx, page)
	root, err := page.Snapshot(ctx)
	if err != nil {
		return places.PlaceRecord{}, false, fmt.Errorf("snapshot place view: %w", err)
	}
	rec, ok := s.ext.Detail(item, root, coords)
	return rec, ok, nil
}

// coordinates polls the live locator, then tries the share dialog.
func (s *Service) coordinates(ctx context.Context, page places.Page) *places.Coordinates {
	if c, err := geo.Poll(ctx, page, s.cfg.CoordPollInterval, s.cfg.CoordPollTimeout); err == nil {
		return &c
	}
	sel := s.ext.Selectors()
	if err := page.Click(ctx, sel.ShareButton, 0); err != nil {
		return nil
	}
	if err := sleep(ctx, s.cfg.ShareWait); err != nil {
		return nil
	}
	root, err := page.Snapshot(ctx)
	if err != nil {
		return nil
	}
	for _, n := range root.Find(sel.ShareInput) {
		if v, ok := n.Attr("value"); ok {
			if c, ok := geo.Resolve(v); ok {
				return &c
			}
		}
	}
	return nil
}

func (s *Service) returnToList(ctx context.Context, page places.Page, target, cardSel string, logger *zap.Logger) {
	if err := page.Back(ctx); err == nil {
		if err := page.WaitFor(ctx, cardSel, s.cfg.DetailWait); err == nil {
			return
		}
	}
	logger.Debug("re-opening search after failed back navigation")
	if err := page.Navigate(ctx, target); err != nil {
		logger.Warn("re-open search failed", zap.Error(err))
		return
	}
	_ = sleep(ctx, s.cfg.RenderWait)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
