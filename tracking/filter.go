package tracking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/utils"
)

// Filter selects targets for listing. The zero value matches everything.
type Filter struct {
	// TTLLive and TTLSat bound the age of the last report, chosen by the
	// target's source type. Zero means no bound.
	TTLLive time.Duration
	TTLSat  time.Duration
	// MMSI restricts the result to a set of vessels when non-empty.
	MMSI map[int]struct{}
	// Areas keeps targets inside any of the areas. A target without a
	// position never matches a non-empty Areas.
	Areas []utils.Area
}

// Match reports whether v passes f at time now.
func (f *Filter) Match(v *model.VesselTarget, now time.Time) bool {
	if f == nil {
		return true
	}
	ttl := f.TTLLive
	if v.SourceType == model.SourceSat {
		ttl = f.TTLSat
	}
	if ttl > 0 && now.Sub(v.LastReport) > ttl {
		return false
	}
	if len(f.MMSI) > 0 {
		if _, ok := f.MMSI[v.MMSI]; !ok {
			return false
		}
	}
	if len(f.Areas) == 0 {
		return true
	}
	if !v.ValidPos() {
		return false
	}
	for _, a := range f.Areas {
		if a.Contains(*v.Lat, *v.Lon) {
			return true
		}
	}
	return false
}

// ParseMMSIList parses a comma separated list of MMSIs.
func ParseMMSIList(s string) (map[int]struct{}, error) {
	set := map[int]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mmsi, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid mmsi %q", part)
		}
		set[mmsi] = struct{}{}
	}
	return set, nil
}
