package blockprod

import (
	"fmt"
	"sort"

	"github.com/DashNode-Org/slot-sentinel/pkg/analytics"
	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
)

// View is a canned filter and ordering over a fetched validator set.
type View string

const (
	ViewConcerning      View = "concerning"
	ViewPerfect         View = "perfect"
	ViewOffline         View = "offline"
	ViewSignificant     View = "significant"
	ViewHighStake       View = "high-stake"
	ViewModerate        View = "moderate"
	ViewWorstPercentile View = "worst-percentile"
)

var Views = []View{
	ViewConcerning, ViewPerfect, ViewOffline, ViewSignificant, ViewHighStake, ViewModerate, ViewWorstPercentile,
}

func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", apperr.InvalidConfiguration("view", fmt.Sprintf("unknown view %q", s),
		"use one of concerning, perfect, offline, significant, high-stake, moderate, worst-percentile")
}

// Apply selects the view's validators from result. Validators in result are
// already ascending by skip rate, so ascending views keep that order.
func (v View) Apply(result *analytics.FetchResult) []analytics.ValidatorRecord {
	records := result.Validators
	switch v {
	case ViewConcerning:
		return analytics.Filter(records, analytics.ValidatorRecord.Concerning)
	case ViewPerfect:
		return analytics.Filter(records, analytics.ValidatorRecord.Perfect)
	case ViewOffline:
		return analytics.Filter(records, analytics.ValidatorRecord.Offline)
	case ViewSignificant:
		return analytics.Filter(records, analytics.ValidatorRecord.Significant)
	case ViewHighStake:
		return analytics.Filter(records, analytics.ValidatorRecord.HighStake)
	case ViewModerate:
		return analytics.Filter(records, func(r analytics.ValidatorRecord) bool {
			return r.SkipRatePercent > 0 && r.SkipRatePercent <= analytics.ConcerningThreshold
		})
	case ViewWorstPercentile:
		// offline validators are reported by their own view
		p95 := result.Statistics.P95
		out := analytics.Filter(records, func(r analytics.ValidatorRecord) bool {
			return r.SkipRatePercent >= p95 && r.SkipRatePercent < analytics.OfflineThreshold
		})
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SkipRatePercent > out[j].SkipRatePercent
		})
		return out
	}
	return []analytics.ValidatorRecord{}
}

// FilterIdentities keeps the records whose identity is listed, in result order.
func FilterIdentities(records []analytics.ValidatorRecord, identities []string) []analytics.ValidatorRecord {
	wanted := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		wanted[id] = struct{}{}
	}
	return analytics.Filter(records, func(r analytics.ValidatorRecord) bool {
		_, ok := wanted[r.Identity]
		return ok
	})
}
