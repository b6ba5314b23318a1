package candidate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/svmerge/encoding/bedio"
	"github.com/grailbio/svmerge/sv"
)

// Attributes of region-file rows.
const (
	attrWindow  = "WINDOW"
	attrOrigin  = "ORIGIN"
	attrSkip    = "SKIP"
	attrSupport = "SUPPORT"
)

// records flattens a region into one row per supporting interval.  A
// soft-clip region is a single row spanning its window.
func (r *Region) records() []bedio.Record {
	attrs := func() map[string]string {
		m := map[string]string{
			bedio.AttrRegion: r.ID(),
			attrWindow:       fmt.Sprintf("%d-%d", r.Start, r.End),
			attrOrigin:       string(r.Origin),
		}
		if r.Skip {
			m[attrSkip] = r.SkipReason
		}
		if r.Support > 0 {
			m[attrSupport] = strconv.Itoa(r.Support)
		}
		return m
	}
	if len(r.Intervals) == 0 {
		return []bedio.Record{{
			Chrom:   r.Chrom,
			Start:   r.Start,
			End:     r.End,
			Type:    r.Type,
			Sources: r.Sources,
			Attrs:   attrs(),
		}}
	}
	recs := make([]bedio.Record, len(r.Intervals))
	for i, iv := range r.Intervals {
		rec := bedio.FromCall(sv.NewCall(iv))
		for _, k := range []string{bedio.AttrOutcome, bedio.AttrGenotype, bedio.AttrRefReads, bedio.AttrAltReads} {
			delete(rec.Attrs, k)
		}
		for k, v := range attrs() {
			rec.Attrs[k] = v
		}
		recs[i] = rec
	}
	return recs
}

// WriteRegions saves regions so that another process can refine a slice of
// them.  meta is written as file headers.
func WriteRegions(ctx context.Context, path string, meta map[string]string, regions []Region) error {
	var recs []bedio.Record
	for i := range regions {
		recs = append(recs, regions[i].records()...)
	}
	return bedio.WriteFile(ctx, path, meta, recs)
}

func parseWindow(s string) (start, end int, err error) {
	if _, err = fmt.Sscanf(s, "%d-%d", &start, &end); err != nil {
		return 0, 0, errors.E(errors.Invalid, err, "region window", s)
	}
	return start, end, nil
}

// ReadRegions loads a file written by WriteRegions.  A missing file is
// errors.NotExist.
func ReadRegions(ctx context.Context, path string) ([]Region, map[string]string, error) {
	recs, meta, err := bedio.ReadFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var regions []Region
	for _, rec := range recs {
		id := rec.Attrs[bedio.AttrRegion]
		if id == "" {
			return nil, nil, errors.E(errors.Invalid, "region row without id", path)
		}
		if n := len(regions); n == 0 || regions[n-1].ID() != id {
			start, end, err := parseWindow(rec.Attrs[attrWindow])
			if err != nil {
				return nil, nil, errors.E(err, path)
			}
			r := Region{
				Chrom:      rec.Chrom,
				Start:      start,
				End:        end,
				Type:       rec.Type,
				Origin:     Origin(rec.Attrs[attrOrigin]),
				SkipReason: rec.Attrs[attrSkip],
			}
			r.Skip = r.SkipReason != ""
			if v, ok := rec.Attrs[attrSupport]; ok {
				if r.Support, err = strconv.Atoi(v); err != nil {
					return nil, nil, errors.E(errors.Invalid, err, "support", v)
				}
			}
			if r.ID() != id {
				return nil, nil, errors.E(errors.Integrity, fmt.Sprintf("region %s does not match id %s", r.Key(), id), path)
			}
			regions = append(regions, r)
		}
		r := &regions[len(regions)-1]
		if r.Origin == SoftClip {
			r.Sources = rec.Sources
			continue
		}
		iv, err := rec.Interval()
		if err != nil {
			return nil, nil, errors.E(err, path)
		}
		r.Intervals = append(r.Intervals, iv)
		r.Sources = sv.NormalizeSources(append(r.Sources, iv.Sources...))
		r.Tools = len(r.Sources)
	}
	return regions, meta, nil
}
