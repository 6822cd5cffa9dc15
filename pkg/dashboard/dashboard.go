// Package dashboard serves a live view of a critter environment over HTTP.
//
// The dashboard provides:
// - A canvas rendering of the grid, refreshed once per frame
// - The per-species census and the winner once one species remains
// - Manual stepping, pausing and restarting with a new seed
// - Cumulative standings from headless runs, when a standings table is attached
//
// A background ticker advances the environment by one epoch per frame interval
// until a winner exists or every critter is dead. All assets are compiled into
// the binary.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/standings"
	"github.com/fortiblox/critters/pkg/world"
)

// Config holds dashboard configuration options.
type Config struct {
	// BindAddress is the address to bind the HTTP server to.
	// Default: "127.0.0.1"
	BindAddress string

	// Port is the port to listen on.
	// Default: 8080
	Port int

	// FrameInterval is the time between automatic epochs.
	// Default: 100ms
	FrameInterval time.Duration

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout time.Duration

	// Logger receives lifecycle and round events.
	Logger zerolog.Logger

	// OnFrame, if set, receives the initial frame and then a frame after every
	// epoch and restart. It is called with the environment locked and must not
	// block.
	OnFrame func(world.Frame)
}

// DefaultConfig returns the default dashboard configuration.
func DefaultConfig() Config {
	return Config{
		BindAddress:   "127.0.0.1",
		Port:          8080,
		FrameInterval: 100 * time.Millisecond,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		Logger:        zerolog.Nop(),
	}
}

// Standings provides cumulative per-species results to the dashboard.
type Standings interface {
	// All returns every standing, best first.
	All() ([]*standings.Standing, error)
}

// Dashboard is the web dashboard server.
type Dashboard struct {
	config    Config
	server    *http.Server
	roster    species.Roster
	world     world.Config
	standings Standings
	log       zerolog.Logger

	// Cached templates
	templates *template.Template

	// State
	mu        sync.RWMutex
	env       *world.Environment
	faults    int
	paused    bool
	announced bool
	running   bool
	startTime time.Time
}

// New creates a dashboard over a fresh environment built from roster and
// worldCfg. table may be nil.
func New(config Config, roster species.Roster, worldCfg world.Config, table Standings) (*Dashboard, error) {
	// Apply defaults
	if config.BindAddress == "" {
		config.BindAddress = DefaultConfig().BindAddress
	}
	if config.Port == 0 {
		config.Port = DefaultConfig().Port
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultConfig().FrameInterval
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultConfig().ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	env, err := world.New(worldCfg, roster)
	if err != nil {
		return nil, fmt.Errorf("create environment: %w", err)
	}

	d := &Dashboard{
		config:    config,
		roster:    roster,
		world:     worldCfg,
		standings: table,
		log:       config.Logger,
		env:       env,
	}

	// Parse templates
	tmpl, err := d.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	d.templates = tmpl
	d.publish()

	return d, nil
}

// parseTemplates parses all embedded templates.
func (d *Dashboard) parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatDuration": formatDuration,
		"percent":        func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"add":            func(a, b int) int { return a + b },
	}

	tmpl := template.New("").Funcs(funcMap)

	// Parse layout with explicit name
	_, err := tmpl.New("layout").Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	// Parse page templates
	templates := map[string]string{
		"home":      homeTemplate,
		"standings": standingsTemplate,
	}

	for name, content := range templates {
		_, err := tmpl.New(name).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}

	return tmpl, nil
}

// Handler returns the dashboard's HTTP routes.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static assets
	mux.HandleFunc("/static/", d.handleStatic)

	// Page routes
	mux.HandleFunc("/", d.handleHome)
	mux.HandleFunc("/standings", d.handleStandings)

	// API routes
	mux.HandleFunc("/api/frame", d.handleAPIFrame)
	mux.HandleFunc("/api/census", d.handleAPICensus)
	mux.HandleFunc("/api/status", d.handleAPIStatus)
	mux.HandleFunc("/api/step", d.handleAPIStep)
	mux.HandleFunc("/api/pause", d.handleAPIPause)
	mux.HandleFunc("/api/restart", d.handleAPIRestart)
	mux.HandleFunc("/api/standings", d.handleAPIStandings)

	return mux
}

// Start starts the frame ticker and the HTTP server. It blocks until the
// server stops.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dashboard already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	addr := d.Address()
	d.server = &http.Server{
		Addr:         addr,
		Handler:      d.Handler(),
		ReadTimeout:  d.config.ReadTimeout,
		WriteTimeout: d.config.WriteTimeout,
		IdleTimeout:  d.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go d.animate(ctx)
	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.log.Info().Str("addr", addr).Dur("frame", d.config.FrameInterval).Msg("dashboard listening")
	if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the dashboard server.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return d.server.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the dashboard is listening on.
func (d *Dashboard) Address() string {
	return fmt.Sprintf("%s:%d", d.config.BindAddress, d.config.Port)
}

// animate advances one epoch per frame until ctx is done.
func (d *Dashboard) animate(ctx context.Context) {
	ticker := time.NewTicker(d.config.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick advances the environment unless it is paused or finished.
func (d *Dashboard) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused {
		return
	}
	d.advance()
}

// advance runs one epoch if the round is still open. The caller holds mu.
func (d *Dashboard) advance() (world.EpochReport, bool) {
	if d.finished() {
		return world.EpochReport{Epoch: d.env.Epoch()}, false
	}
	report := d.env.AdvanceEpoch()
	d.faults += len(report.Faults)
	d.publish()
	if d.finished() && !d.announced {
		d.announced = true
		winner, _ := d.env.Winner()
		d.log.Info().Uint64("seed", d.env.Seed()).Int64("epoch", d.env.Epoch()).
			Str("winner", winner).Int("faults", d.faults).Msg("round finished")
	}
	return report, true
}

// finished reports whether no further epochs can change the outcome. The
// caller holds mu.
func (d *Dashboard) finished() bool {
	if _, ok := d.env.Winner(); ok {
		return true
	}
	return d.env.Alive() == 0
}

// restart replaces the environment with a fresh one seeded with seed.
func (d *Dashboard) restart(seed uint64) error {
	d.mu.RLock()
	cfg := d.world
	d.mu.RUnlock()
	cfg.Seed = seed
	env, err := world.New(cfg, d.roster)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.world = cfg
	d.env = env
	d.faults = 0
	d.announced = false
	d.publish()
	d.mu.Unlock()

	d.log.Info().Uint64("seed", seed).Int("critters", len(env.Critters())).Msg("round restarted")
	return nil
}

// publish hands the current frame to OnFrame. The caller holds mu.
func (d *Dashboard) publish() {
	if d.config.OnFrame != nil {
		d.config.OnFrame(d.env.Frame())
	}
}

// frame returns a snapshot of the current environment.
func (d *Dashboard) frame() world.Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.env.Frame()
}

// handleHome renders the live view page.
func (d *Dashboard) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	d.mu.RLock()
	data := map[string]interface{}{
		"Species": d.roster,
		"Width":   d.env.Width(),
		"Height":  d.env.Height(),
		"Seed":    d.env.Seed(),
		"Frame":   d.config.FrameInterval.Milliseconds(),
	}
	d.mu.RUnlock()

	d.renderPage(w, "home", data)
}

// handleStandings renders the standings page.
func (d *Dashboard) handleStandings(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Enabled": d.standings != nil,
	}
	if d.standings != nil {
		list, err := d.standings.All()
		if err != nil {
			data["Error"] = err.Error()
		}
		data["Standings"] = list
	}
	d.renderPage(w, "standings", data)
}

// handleStatic serves embedded static assets.
func (d *Dashboard) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/static/")

	content, contentType, ok := getStaticAsset(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write([]byte(content))
}

// renderPage renders a page template with the given data.
func (d *Dashboard) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// First render the content template into a buffer
	var contentBuf strings.Builder
	if err := d.templates.ExecuteTemplate(&contentBuf, name, data); err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
		return
	}

	// Then render the layout with the content
	pageData := map[string]interface{}{
		"PageName": name,
		"Content":  template.HTML(contentBuf.String()),
	}

	if err := d.templates.ExecuteTemplate(w, "layout", pageData); err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Template helper functions

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
