package ephem

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/logging"
)

const (
	// HorizonsAPIURL is the JPL Horizons JSON API endpoint.
	HorizonsAPIURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// TableSpan is the time span fetched per request.
	TableSpan = time.Hour

	// TableStep is the step between table rows.
	TableStep = time.Minute

	// RequestTimeout is the HTTP request timeout.
	RequestTimeout = 30 * time.Second

	// maxCachedTables bounds the table cache; it is cleared when full.
	maxCachedTables = 512
)

// HorizonsProvider queries JPL Horizons for apparent topocentric Sun and
// Moon positions. Tables are fetched one hour at a time and interpolated.
type HorizonsProvider struct {
	client  *http.Client
	baseURL string
	logger  *logging.Logger

	mu     sync.RWMutex
	tables map[tableKey][]tableRow
}

// tableKey identifies one cached hour of positions for one site.
type tableKey struct {
	body   Body
	latE4  int64
	lonE4  int64
	elevM  int64
	hourTS int64
}

// tableRow is one line of a Horizons observer table.
type tableRow struct {
	t      time.Time
	raDeg  float64
	decDeg float64
	distAU float64
}

// NewHorizonsProvider creates a new Horizons API client. A nil client uses
// RequestTimeout; an empty baseURL uses HorizonsAPIURL.
func NewHorizonsProvider(client *http.Client, baseURL string, logger *logging.Logger) *HorizonsProvider {
	if client == nil {
		client = &http.Client{Timeout: RequestTimeout}
	}
	if baseURL == "" {
		baseURL = HorizonsAPIURL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &HorizonsProvider{
		client:  client,
		baseURL: baseURL,
		logger:  logger.Component("horizons"),
		tables:  make(map[tableKey][]tableRow),
	}
}

// Name implements Provider.
func (p *HorizonsProvider) Name() string {
	return "horizons"
}

// EquatorialPosition implements Positioner.
func (p *HorizonsProvider) EquatorialPosition(body Body, t time.Time, obs astro.Observer) (Equatorial, error) {
	if body.NAIFID() == 0 {
		return Equatorial{}, fmt.Errorf("%w: %d", ErrUnknownBody, body)
	}

	rows, err := p.table(body, t, obs)
	if err != nil {
		return Equatorial{}, err
	}
	return interpolate(rows, t)
}

// HorizontalPosition implements Positioner.
func (p *HorizonsProvider) HorizontalPosition(t time.Time, obs astro.Observer, eq Equatorial, mode HorizonMode) Horizontal {
	return toHorizontal(t, obs, eq)
}

// InvalidateCache drops all cached tables.
func (p *HorizonsProvider) InvalidateCache() {
	p.mu.Lock()
	p.tables = make(map[tableKey][]tableRow)
	p.mu.Unlock()
}

// table returns the cached hour table containing t, fetching it on a miss.
func (p *HorizonsProvider) table(body Body, t time.Time, obs astro.Observer) ([]tableRow, error) {
	hour := t.UTC().Truncate(TableSpan)
	key := tableKey{
		body:   body,
		latE4:  int64(math.Round(obs.LatDeg * 1e4)),
		lonE4:  int64(math.Round(obs.LonDeg * 1e4)),
		elevM:  int64(math.Round(obs.ElevationM)),
		hourTS: hour.Unix(),
	}

	p.mu.RLock()
	rows, ok := p.tables[key]
	p.mu.RUnlock()
	if ok {
		return rows, nil
	}

	rows, err := p.queryHorizons(body, hour, hour.Add(TableSpan), obs)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if len(p.tables) >= maxCachedTables {
		p.tables = make(map[tableKey][]tableRow)
	}
	p.tables[key] = rows
	p.mu.Unlock()

	return rows, nil
}

// queryHorizons makes a request to the Horizons API.
func (p *HorizonsProvider) queryHorizons(body Body, start, end time.Time, obs astro.Observer) ([]tableRow, error) {
	// Build request parameters - values must be quoted with single quotes
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%d'", body.NAIFID()))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "OBSERVER")
	params.Set("CENTER", "'coord@399'")
	params.Set("COORD_TYPE", "GEODETIC")
	params.Set("SITE_COORD", fmt.Sprintf("'%.4f,%.4f,%.4f'", obs.LonDeg, obs.LatDeg, obs.ElevationM/1000))
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(start)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(end)))
	params.Set("STEP_SIZE", fmt.Sprintf("'%s'", formatStepSize(TableStep)))
	params.Set("QUANTITIES", "'2,20'") // 2=apparent RA/Dec, 20=observer range
	params.Set("ANG_FORMAT", "DEG")
	params.Set("APPARENT", "AIRLESS")
	params.Set("EXTRA_PREC", "YES")

	reqURL := p.baseURL + "?" + params.Encode()
	p.logger.Debug("%s %s..%s", body, formatHorizonsTime(start), formatHorizonsTime(end))

	resp, err := p.client.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("horizons request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("horizons returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseHorizonsResponse(b)
}

// horizonsResponse represents the JSON API response.
type horizonsResponse struct {
	Signature struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	} `json:"signature"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// parseHorizonsResponse parses the Horizons JSON response.
func parseHorizonsResponse(body []byte) ([]tableRow, error) {
	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("horizons error: %s", strings.TrimSpace(resp.Error))
	}

	// The actual ephemeris data is in resp.Result as a text blob
	rows, err := parseEphemerisTable(resp.Result)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no ephemeris rows in horizons response")
	}
	return rows, nil
}

// parseEphemerisTable extracts rows from the Horizons text output.
func parseEphemerisTable(result string) ([]tableRow, error) {
	// Find the data section between $$SOE and $$EOE markers
	soeIdx := strings.Index(result, "$$SOE")
	eoeIdx := strings.Index(result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		return nil, fmt.Errorf("could not find ephemeris data markers")
	}

	var rows []tableRow
	for _, line := range strings.Split(result[soeIdx+5:eoeIdx], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		row, err := parseEphemerisLine(line)
		if err != nil {
			continue // Skip unparseable lines
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	return rows, nil
}

// parseEphemerisLine parses a single ephemeris data line.
// Format for QUANTITIES='2,20' with ANG_FORMAT=DEG:
// 2026-Aug-12 18:00 *m 142.307915216  14.855631120 1.01325784604557  -0.1203485
// Fields: date, time, optional presence flags, RA, Dec, delta, deldot
func parseEphemerisLine(line string) (tableRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return tableRow{}, fmt.Errorf("insufficient fields: %d", len(fields))
	}

	t, err := parseHorizonsDateTime(fields[0] + " " + fields[1])
	if err != nil {
		return tableRow{}, err
	}

	// Skip flag fields (like *, *m, Cm, Nm, Am, etc.)
	var vals []float64
	for _, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			if len(vals) > 0 {
				break
			}
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) < 3 {
		return tableRow{}, fmt.Errorf("could not find RA/Dec/range values")
	}
	if vals[2] <= 0 {
		return tableRow{}, fmt.Errorf("non-positive range %v", vals[2])
	}

	return tableRow{
		t:      t,
		raDeg:  vals[0],
		decDeg: vals[1],
		distAU: vals[2],
	}, nil
}

// interpolate linearly interpolates a table at t. RA is unwrapped across 0h.
func interpolate(rows []tableRow, t time.Time) (Equatorial, error) {
	if len(rows) == 0 {
		return Equatorial{}, fmt.Errorf("empty ephemeris table")
	}
	if t.Before(rows[0].t) || t.After(rows[len(rows)-1].t) {
		return Equatorial{}, fmt.Errorf("time %s outside table %s..%s",
			t.UTC().Format(time.RFC3339), rows[0].t.Format(time.RFC3339), rows[len(rows)-1].t.Format(time.RFC3339))
	}

	i := sort.Search(len(rows), func(i int) bool { return !rows[i].t.Before(t) })
	if rows[i].t.Equal(t) || i == 0 {
		return rows[i].equatorial(), nil
	}

	a, b := rows[i-1], rows[i]
	f := float64(t.Sub(a.t)) / float64(b.t.Sub(a.t))

	dRA := b.raDeg - a.raDeg
	if dRA > 180 {
		dRA -= 360
	} else if dRA < -180 {
		dRA += 360
	}
	ra := math.Mod(a.raDeg+f*dRA+360, 360)

	return Equatorial{
		RAHours: ra / 15,
		DecDeg:  a.decDeg + f*(b.decDeg-a.decDeg),
		DistAU:  a.distAU + f*(b.distAU-a.distAU),
	}, nil
}

func (r tableRow) equatorial() Equatorial {
	return Equatorial{RAHours: r.raDeg / 15, DecDeg: r.decDeg, DistAU: r.distAU}
}

// parseHorizonsDateTime parses Horizons date format like "2025-Dec-05 00:00".
func parseHorizonsDateTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-Jan-02 15:04", "2006-Jan-02 15:04:05", "2006-Jan-02 15:04:05.000"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// formatHorizonsTime formats a time for Horizons API.
func formatHorizonsTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// formatStepSize formats a duration as a Horizons step size.
func formatStepSize(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes >= 60 && minutes%60 == 0 {
		return fmt.Sprintf("%d h", minutes/60)
	}
	return fmt.Sprintf("%d m", minutes)
}
