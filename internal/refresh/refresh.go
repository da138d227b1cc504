package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"salondesk/internal/calendar"
	"salondesk/internal/capture"
	"salondesk/internal/config"
	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/salonapi"
	"salondesk/internal/scheduler"
	"salondesk/internal/session"
	"salondesk/internal/web"
)

// API is what the display job needs from the salon backend.
type API interface {
	calendar.Source
	Login(ctx context.Context, username, password string) (salonapi.Token, error)
}

// CaptureFunc turns a rendered page into a PNG on disk.
type CaptureFunc func(ctx context.Context, opts capture.Options) error

// Job renders today's day view for the front-desk display and captures it
// to cfg.Display.Output. Cycles never overlap.
type Job struct {
	cfg      *config.Config
	api      API
	loader   *calendar.Loader
	renderer *web.Renderer
	closures *scheduler.Closures
	loc      *time.Location

	Capture CaptureFunc
	now     func() time.Time

	mu   sync.Mutex
	sess *session.Session
}

// New builds a display job. cfg must already be validated.
func New(cfg *config.Config, api API) (*Job, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	closures, err := scheduler.ParseClosures(cfg.Closures)
	if err != nil {
		return nil, err
	}
	return &Job{
		cfg:      cfg,
		api:      api,
		loader:   calendar.NewLoader(api),
		renderer: renderer,
		closures: closures,
		loc:      cfg.Location(),
		Capture:  capture.CalendarPNG,
		now:      time.Now,
	}, nil
}

// session returns the cached service session, logging in again when it is
// missing or expired.
func (j *Job) session(ctx context.Context) (*session.Session, error) {
	now := j.now()
	if j.sess != nil && !j.sess.Expired(now) {
		return j.sess, nil
	}
	tok, err := j.api.Login(ctx, j.cfg.Display.Username, j.cfg.Display.Password)
	if err != nil {
		return nil, fmt.Errorf("display login: %w", err)
	}
	j.sess = session.New(tok.AccessToken, j.cfg.SessionTTL, now)
	appLog.Debug("display session started", "token", appLog.RedactToken(tok.AccessToken))
	return j.sess, nil
}

// RunOnce performs one refresh cycle. On error the previous PNG is left in
// place.
func (j *Job) RunOnce(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	started := j.now()

	sess, err := j.session(ctx)
	if err != nil {
		return err
	}

	snap, err := j.loader.Load(ctx, sess)
	if err != nil {
		if errors.Is(err, salonapi.ErrUnauthorized) {
			j.sess = nil
		}
		return fmt.Errorf("display load: %w", err)
	}

	now := j.now().In(j.loc)
	today := model.DateOf(now)
	grid := scheduler.BuildGrid(
		scheduler.NewWindow(scheduler.Day, today, scheduler.ParseWeekStart(j.cfg.WeekStart)),
		snap.Events,
		scheduler.Options{
			Axis:           j.cfg.SchedulerAxis(),
			MonthCellLimit: j.cfg.MonthCellLimit,
			Closures:       j.closures,
			Today:          today,
		},
	)

	page, err := j.writePage(grid, now.Format("Jan 2, 15:04"))
	if err != nil {
		return err
	}
	defer os.Remove(page)

	url, err := capture.FileURL(page)
	if err != nil {
		return fmt.Errorf("display page url: %w", err)
	}
	if err := j.Capture(ctx, capture.Options{
		URL:        url,
		OutputPath: j.cfg.Display.Output,
		Width:      j.cfg.Display.Width,
		Height:     j.cfg.Display.Height,
	}); err != nil {
		return fmt.Errorf("display capture: %w", err)
	}

	appLog.Info("display refreshed",
		"output", j.cfg.Display.Output,
		"events", len(grid.Days[0].Events),
		"out_of_axis", grid.OutOfAxis(),
		"degraded", snap.Degraded,
		"elapsed", j.now().Sub(started).Round(time.Millisecond).String(),
	)
	return nil
}

// writePage renders the standalone display page next to the output PNG.
func (j *Job) writePage(grid scheduler.Grid, generated string) (string, error) {
	dir := filepath.Dir(j.cfg.Display.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("display dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".display-*.html")
	if err != nil {
		return "", fmt.Errorf("display page: %w", err)
	}
	if err := j.renderer.Display(f, grid, generated); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("render display page: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("display page: %w", err)
	}
	return f.Name(), nil
}

// Start runs one cycle immediately and then on cfg.Display.Cron until ctx is
// cancelled. It returns once the schedule is registered.
func (j *Job) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(j.loc))
	run := func() {
		if err := j.RunOnce(ctx); err != nil {
			appLog.Error("display refresh failed", err)
		}
	}
	if _, err := c.AddFunc(j.cfg.Display.Cron, run); err != nil {
		return fmt.Errorf("display cron %q: %w", j.cfg.Display.Cron, err)
	}

	appLog.Info("display refresh scheduled", "cron", j.cfg.Display.Cron, "output", j.cfg.Display.Output)
	c.Start()
	go run()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Debug("display refresh stopped")
	}()
	return nil
}
