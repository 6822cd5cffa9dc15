package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fortiblox/critters/pkg/world"
)

// maxStepsPerRequest bounds the n parameter of /api/step.
const maxStepsPerRequest = 1000

// StatusResponse is the response for /api/status.
type StatusResponse struct {
	Seed          uint64  `json:"seed"`
	Epoch         int64   `json:"epoch"`
	Alive         int     `json:"alive"`
	Winner        string  `json:"winner,omitempty"`
	Finished      bool    `json:"finished"`
	Paused        bool    `json:"paused"`
	Faults        int     `json:"faults"`
	Species       int     `json:"species"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// CensusResponse is the response for /api/census.
type CensusResponse struct {
	Epoch  int64                `json:"epoch"`
	Census []world.SpeciesCount `json:"census"`
	Winner string               `json:"winner,omitempty"`
}

// FaultResponse describes one faulted turn.
type FaultResponse struct {
	Critter int    `json:"critter"`
	Species string `json:"species"`
	Line    int    `json:"line"`
	Error   string `json:"error"`
}

// StepResponse is the response for /api/step.
type StepResponse struct {
	Epoch      int64           `json:"epoch"`
	Advanced   int             `json:"advanced"`
	Turns      int             `json:"turns"`
	BonusTurns int             `json:"bonusTurns"`
	Faults     []FaultResponse `json:"faults"`
	Winner     string          `json:"winner,omitempty"`
}

// RestartResponse is the response for /api/restart.
type RestartResponse struct {
	Seed     uint64 `json:"seed"`
	Epoch    int64  `json:"epoch"`
	Critters int    `json:"critters"`
}

// handleAPIFrame handles GET /api/frame.
func (d *Dashboard) handleAPIFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, d.frame())
}

// handleAPICensus handles GET /api/census.
func (d *Dashboard) handleAPICensus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.RLock()
	resp := CensusResponse{
		Epoch:  d.env.Epoch(),
		Census: d.env.Census(),
	}
	resp.Winner, _ = d.env.Winner()
	d.mu.RUnlock()

	writeJSON(w, resp)
}

// handleAPIStatus handles GET /api/status.
func (d *Dashboard) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.RLock()
	resp := StatusResponse{
		Seed:     d.env.Seed(),
		Epoch:    d.env.Epoch(),
		Alive:    d.env.Alive(),
		Finished: d.finished(),
		Paused:   d.paused,
		Faults:   d.faults,
		Species:  len(d.roster),
	}
	resp.Winner, _ = d.env.Winner()
	var uptime time.Duration
	if !d.startTime.IsZero() {
		uptime = time.Since(d.startTime)
	}
	d.mu.RUnlock()

	resp.Uptime = formatDuration(uptime)
	resp.UptimeSeconds = uptime.Seconds()
	writeJSON(w, resp)
}

// handleAPIStep handles POST /api/step?n=count. It advances up to n epochs,
// stopping early once the round is finished.
func (d *Dashboard) handleAPIStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxStepsPerRequest {
			writeError(w, "n must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	resp := StepResponse{Faults: []FaultResponse{}}

	d.mu.Lock()
	for i := 0; i < n; i++ {
		report, ok := d.advance()
		if !ok {
			break
		}
		resp.Advanced++
		resp.Turns += report.Turns
		resp.BonusTurns += report.BonusTurns
		for _, f := range report.Faults {
			resp.Faults = append(resp.Faults, FaultResponse{
				Critter: int(f.ID),
				Species: f.Species,
				Line:    f.Line,
				Error:   f.Err.Error(),
			})
		}
	}
	resp.Epoch = d.env.Epoch()
	resp.Winner, _ = d.env.Winner()
	d.mu.Unlock()

	writeJSON(w, resp)
}

// handleAPIPause handles POST /api/pause. It toggles the frame ticker and
// reports the new state.
func (d *Dashboard) handleAPIPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.Lock()
	d.paused = !d.paused
	paused := d.paused
	d.mu.Unlock()

	writeJSON(w, map[string]bool{"paused": paused})
}

// handleAPIRestart handles POST /api/restart?seed=n. Without a seed the next
// seed after the current one is used.
func (d *Dashboard) handleAPIRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.RLock()
	seed := d.env.Seed() + 1
	d.mu.RUnlock()

	if v := r.URL.Query().Get("seed"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, "Invalid seed", http.StatusBadRequest)
			return
		}
		seed = parsed
	}

	if err := d.restart(seed); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	d.mu.RLock()
	resp := RestartResponse{
		Seed:     d.env.Seed(),
		Epoch:    d.env.Epoch(),
		Critters: len(d.env.Critters()),
	}
	d.mu.RUnlock()

	writeJSON(w, resp)
}

// handleAPIStandings handles GET /api/standings.
func (d *Dashboard) handleAPIStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if d.standings == nil {
		writeError(w, "Standings not available", http.StatusNotFound)
		return
	}

	list, err := d.standings.All()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, list)
}
