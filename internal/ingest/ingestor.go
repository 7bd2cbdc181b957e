package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/i474232898/site-analytics/internal/statistics"
)

// LinePattern is the shape of an accepted statistics line:
// yyyyMMddHH,users,newUsers,sessions,<unused>
var LinePattern = regexp.MustCompile(`^[0-9]{10},\d+,\d+,\d+,\d+$`)

// Upload is a file stored by the upload layer, waiting to be ingested.
type Upload struct {
	Path     string
	Filename string
	Size     int64
}

// Result summarizes one ingestion.
type Result struct {
	Accepted   int `json:"accepted"`
	Dropped    int `json:"dropped"`
	Duplicates int `json:"duplicates"`
}

// Ingestor turns uploaded statistics text into records.
type Ingestor struct {
	log    zerolog.Logger
	remove func(string) error
}

// New creates an Ingestor.
func New(log zerolog.Logger) *Ingestor {
	return &Ingestor{
		log:    log.With().Str("component", "ingest").Logger(),
		remove: os.Remove,
	}
}

// Ingest reads the upload into set and removes the upload file afterwards,
// whatever the outcome. A failed removal is logged only.
func (in *Ingestor) Ingest(ctx context.Context, up Upload, set *statistics.Set) (Result, error) {
	defer func() {
		if err := in.remove(up.Path); err != nil && !os.IsNotExist(err) {
			in.log.Warn().Err(err).Str("file", up.Path).Msg("could not remove upload")
		}
	}()

	f, err := os.Open(up.Path)
	if err != nil {
		return Result{}, fmt.Errorf("open upload %s: %w", up.Filename, err)
	}
	defer f.Close()

	res, err := in.IngestReader(ctx, f, set)
	if err != nil {
		return res, err
	}
	in.log.Info().
		Str("file", up.Filename).
		Int64("size", up.Size).
		Int("records", res.Accepted).
		Int("dropped", res.Dropped).
		Int("duplicates", res.Duplicates).
		Msg("upload ingested")
	return res, nil
}

// maxLineBytes is the longest line IngestReader looks at. Longer lines are
// dropped like any other line that does not match LinePattern.
const maxLineBytes = 64 << 10

// IngestReader parses every line of r. Lines not matching LinePattern are
// dropped; a matching line that cannot be parsed fails the whole import with
// a *statistics.FormatError.
func (in *Ingestor) IngestReader(ctx context.Context, r io.Reader, set *statistics.Set) (Result, error) {
	var (
		res    Result
		lineNo int
	)
	br := bufio.NewReaderSize(r, maxLineBytes)
	for {
		raw, overlong, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("read statistics: %w", err)
		}
		eof := err != nil
		if eof && len(raw) == 0 && !overlong {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lineNo++

		line := strings.TrimSpace(string(raw))
		if overlong || !LinePattern.MatchString(line) {
			res.Dropped++
		} else if err := in.add(set, lineNo, line, &res); err != nil {
			return res, err
		}
		if eof {
			return res, nil
		}
	}
}

func (in *Ingestor) add(set *statistics.Set, lineNo int, line string, res *Result) error {
	rec, err := parseLine(line)
	if err != nil {
		fe := &statistics.FormatError{Line: lineNo, Input: line, Err: err}
		var inner *statistics.FormatError
		if errors.As(err, &inner) {
			fe.Err = inner.Err
		}
		return fe
	}
	if !set.Add(rec) {
		res.Duplicates++
		in.log.Debug().Int("line", lineNo).Str("point", rec.Point.String()).Msg("duplicate hour ignored")
		return nil
	}
	res.Accepted++
	return nil
}

// readLine returns the next line of br including its terminator. A line that
// does not fit the reader's buffer is consumed and reported as overlong,
// without content.
func readLine(br *bufio.Reader) (line []byte, overlong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			overlong = true
			continue
		}
		if overlong {
			return nil, true, err
		}
		return chunk, false, err
	}
}

func parseLine(line string) (*statistics.Record, error) {
	cols := strings.Split(line, ",")
	tp, err := statistics.ParseTimePoint(cols[0])
	if err != nil {
		return nil, err
	}
	var counts [3]uint64
	for i := range counts {
		n, err := strconv.ParseUint(cols[i+1], 10, 64)
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return statistics.NewRecord(tp, counts[0], counts[1], counts[2]), nil
}
