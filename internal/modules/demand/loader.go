// README: CSV loader for the demand dataset (predictions + dropGroupedPoints).
package demand

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"shiftroute/internal/geo"
	"shiftroute/internal/types"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyDataset  = errors.New("dataset has no records")
)

// column aliases after normalisation (lower case, no '_' or ' ')
var columnAliases = map[string][]string{
	"week":       {"week"},
	"dayofweek":  {"dayofweek", "dow"},
	"timewindow": {"timewindow"},
	"hour":       {"hour"},
	"lat":        {"latitude", "lat"},
	"lng":        {"longitude", "lng", "lon"},
	"demand":     {"demand"},
	"supply":     {"supply"},
	"gap":        {"predictions", "prediction", "gap"},
	"dropoffs":   {"dropgroupedpoints"},
}

var requiredColumns = []string{"hour", "lat", "lng", "gap"}

// LoadCSV reads the dataset file at path and returns a ready table.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return NewTable(records), nil
}

// ReadCSV parses demand records. When the dropGroupedPoints column is absent
// the suggested drop-off points are derived with DeriveDropoffs.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	_, hasDropoffs := cols["dropoffs"]

	var records []Record
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if !hasDropoffs {
		records = DeriveDropoffs(records)
	}
	return records, nil
}

func indexColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		n := strings.ToLower(strings.TrimSpace(h))
		n = strings.NewReplacer("_", "", " ", "", "\ufeff", "").Replace(n)
		byName[n] = i
	}
	cols := make(map[string]int)
	for canonical, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := byName[a]; ok {
				cols[canonical] = i
				break
			}
		}
	}
	return cols
}

func parseRow(row []string, cols map[string]int) (Record, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec Record
	var err error
	if rec.Hour, err = strconv.Atoi(field("hour")); err != nil {
		return rec, fmt.Errorf("invalid hour %q: %w", field("hour"), err)
	}
	if rec.Hour < 0 || rec.Hour > 23 {
		return rec, fmt.Errorf("hour %d out of range", rec.Hour)
	}
	if rec.Lat, err = strconv.ParseFloat(field("lat"), 64); err != nil {
		return rec, fmt.Errorf("invalid latitude %q: %w", field("lat"), err)
	}
	if rec.Lng, err = strconv.ParseFloat(field("lng"), 64); err != nil {
		return rec, fmt.Errorf("invalid longitude %q: %w", field("lng"), err)
	}
	if rec.Gap, err = strconv.ParseFloat(field("gap"), 64); err != nil {
		return rec, fmt.Errorf("invalid predictions %q: %w", field("gap"), err)
	}

	rec.Week, _ = strconv.Atoi(field("week"))
	rec.DayOfWeek, _ = strconv.Atoi(field("dayofweek"))
	rec.TimeWindow = field("timewindow")
	rec.Demand, _ = strconv.ParseFloat(field("demand"), 64)
	rec.Supply, _ = strconv.ParseFloat(field("supply"), 64)

	if raw := field("dropoffs"); raw != "" {
		points, err := ParseDropoffs(raw)
		if err != nil {
			log.Warn().Err(err).Int("hour", rec.Hour).Float64("lat", rec.Lat).Float64("lng", rec.Lng).
				Msg("ignoring malformed dropGroupedPoints")
		}
		rec.Dropoffs = points
	}
	return rec, nil
}

// ParseDropoffs decodes a dropGroupedPoints cell: a JSON array of [lat,lng]
// pairs, or the sentinel [0] meaning none.
func ParseDropoffs(raw string) ([]types.Point, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode dropoffs: %w", err)
	}
	var points []types.Point
	for _, item := range items {
		var pair []float64
		if err := json.Unmarshal(item, &pair); err != nil {
			// scalar entries such as the [0] sentinel carry no point
			continue
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("decode dropoffs: expected [lat,lng], got %d values", len(pair))
		}
		points = append(points, types.Point{Lat: pair[0], Lng: pair[1]})
		if len(points) == MaxDropoffs {
			break
		}
	}
	return points, nil
}

// DeriveDropoffs fills suggested drop-off points for records with a negative
// gap: min(MaxDropoffs, ceil(|gap|)) nearest positive-gap records of the same
// hour. Records with a non-negative gap get none.
func DeriveDropoffs(records []Record) []Record {
	byHour := make(map[int][]Record)
	for _, r := range records {
		if r.Gap > 0 {
			byHour[r.Hour] = append(byHour[r.Hour], r)
		}
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
		out[i].Dropoffs = nil
		if r.Gap >= 0 {
			continue
		}
		n := min(MaxDropoffs, int(math.Ceil(-r.Gap)))
		origin := r.Position()
		nearest := geo.Nearest(byHour[r.Hour], n, func(c Record) float64 {
			return geo.HaversineKm(origin, c.Position())
		})
		for _, c := range nearest {
			out[i].Dropoffs = append(out[i].Dropoffs, c.Position())
		}
	}
	return out
}
