package bedio

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/svmerge/sv"
	"github.com/klauspost/compress/gzip"
)

// FromCall converts a call into a record that Call() reverses.
func FromCall(c sv.Call) Record {
	rec := Record{
		Chrom:     c.Chrom,
		Start:     c.Start,
		End:       c.End,
		Type:      c.Type,
		Length:    c.Length,
		Sources:   c.Sources,
		Precise:   c.Precise,
		Validated: c.Validated,
		Attrs: map[string]string{
			AttrOutcome:  string(c.Outcome),
			AttrGenotype: c.Genotype,
			AttrRefReads: strconv.Itoa(c.RefReads),
			AttrAltReads: strconv.Itoa(c.AltReads),
			AttrWiggle:   strconv.Itoa(c.Wiggle),
		},
	}
	if c.RegionID != "" {
		rec.Attrs[AttrRegion] = c.RegionID
	}
	if c.ExactBreakpoints {
		rec.Attrs[AttrExact] = "1"
	}
	for src, v := range c.Native {
		rec.Attrs[AttrNativePrefix+src] = v
	}
	return rec
}

// Interval converts the record into an interval.  Records without a type or
// sources are rejected.
func (rec Record) Interval() (sv.Interval, error) {
	if rec.Type == "" {
		return sv.Interval{}, errors.E(errors.Invalid, "BED record without svtype", rec.Chrom)
	}
	iv := sv.Interval{
		Chrom:     rec.Chrom,
		Start:     rec.Start,
		End:       rec.End,
		Length:    rec.Length,
		Type:      rec.Type,
		Sources:   append([]string(nil), rec.Sources...),
		Precise:   rec.Precise,
		Validated: rec.Validated,
	}
	for k, v := range rec.Attrs {
		switch {
		case k == AttrWiggle:
			w, err := strconv.Atoi(v)
			if err != nil {
				return sv.Interval{}, errors.E(errors.Invalid, err, "wiggle", v)
			}
			iv.Wiggle = w
		case k == AttrExact:
			iv.ExactBreakpoints = v == "1"
		case strings.HasPrefix(k, AttrNativePrefix):
			if iv.Native == nil {
				iv.Native = map[string]string{}
			}
			iv.Native[k[len(AttrNativePrefix):]] = v
		}
	}
	return iv, iv.Check()
}

// Call converts the record into a call, restoring the refinement and
// genotype attributes written by FromCall.
func (rec Record) Call() (sv.Call, error) {
	iv, err := rec.Interval()
	if err != nil {
		return sv.Call{}, err
	}
	c := sv.NewCall(iv)
	if v, ok := rec.Attrs[AttrOutcome]; ok {
		c.Outcome = sv.Outcome(v)
	}
	if v, ok := rec.Attrs[AttrGenotype]; ok {
		c.Genotype = v
	}
	c.RegionID = rec.Attrs[AttrRegion]
	if c.RefReads, err = atoiAttr(rec.Attrs, AttrRefReads); err != nil {
		return sv.Call{}, err
	}
	if c.AltReads, err = atoiAttr(rec.Attrs, AttrAltReads); err != nil {
		return sv.Call{}, err
	}
	return c, nil
}

func atoiAttr(attrs map[string]string, key string) (int, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.E(errors.Invalid, err, key, v)
	}
	return n, nil
}

// ReadFile reads every record in path along with its metadata.  Paths
// ending in .gz are decompressed.  A missing file is errors.NotExist.
func ReadFile(ctx context.Context, path string) (recs []Record, meta map[string]string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(errors.NotExist, err, "open BED", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	r := NewReader(reader)
	for r.Scan() {
		recs = append(recs, r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, nil, errors.E(err, path)
	}
	return recs, r.Meta(), nil
}

// WriteFile writes meta and recs to path, gzip-compressed if the path ends in
// .gz.
func WriteFile(ctx context.Context, path string, meta map[string]string, recs []Record) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	e := errors.Once{}
	var (
		dst io.Writer = out.Writer(ctx)
		gz  *gzip.Writer
	)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz = gzip.NewWriter(dst)
		dst = gz
	}
	w := NewWriter(dst)
	e.Set(w.WriteMeta(meta))
	for _, rec := range recs {
		e.Set(w.Write(rec))
	}
	e.Set(w.Flush())
	if gz != nil {
		e.Set(gz.Close())
	}
	e.Set(out.Close(ctx))
	return e.Err()
}

// ReadCalls reads a BED file of calls.
func ReadCalls(ctx context.Context, path string) ([]sv.Call, map[string]string, error) {
	recs, meta, err := ReadFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	calls := make([]sv.Call, len(recs))
	for i, rec := range recs {
		if calls[i], err = rec.Call(); err != nil {
			return nil, nil, errors.E(err, path)
		}
	}
	return calls, meta, nil
}

// WriteCalls writes calls to a BED file.
func WriteCalls(ctx context.Context, path string, meta map[string]string, calls []sv.Call) error {
	recs := make([]Record, len(calls))
	for i, c := range calls {
		recs[i] = FromCall(c)
	}
	return WriteFile(ctx, path, meta, recs)
}
