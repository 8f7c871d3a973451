package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sweeney/zone5/internal/zone"
)

// MaxTickSeconds bounds the per-batch tick override.
const MaxTickSeconds = 3600

// MedianTick returns the median of gaps rounded to whole seconds and clamped
// to the range a batch tick accepts. gaps is sorted in place; it must not be
// empty.
func MedianTick(gaps []time.Duration) time.Duration {
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	tick := gaps[len(gaps)/2].Round(time.Second)
	if tick < time.Second {
		return time.Second
	}
	if max := MaxTickSeconds * time.Second; tick > max {
		return max
	}
	return tick
}

// Batch is a validated set of samples ready for aggregation.
type Batch struct {
	Samples []zone.Sample
	// Tick overrides the configured tick for this batch when non-zero.
	Tick time.Duration
}

// LastBPM returns the bpm of the final sample, or 0 for an empty batch.
func (b Batch) LastBPM() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return b.Samples[len(b.Samples)-1].BPM
}

type payload struct {
	HeartRates  []rawSample `json:"heartRates" validate:"required,dive"`
	TickSeconds *float64    `json:"tickSeconds" validate:"omitempty,gt=0,lte=3600"`
}

type rawSample struct {
	Date string   `json:"date" validate:"required"`
	BPM  *float64 `json:"bpm" validate:"required,gte=0,lte=300"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names in error paths.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeBatch parses and validates an ingest payload of the form
// {"heartRates":[{"date":..., "bpm":...}], "tickSeconds":...}. A date may be
// a calendar day (YYYY-MM-DD) or an RFC 3339 timestamp, which is attributed
// to the day in its own offset. Any malformed entry rejects the whole batch.
func DecodeBatch(r io.Reader) (Batch, error) {
	var p payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, &ValidationError{Reason: "empty body"}
		}
		if !isJSONError(err) {
			return Batch{}, fmt.Errorf("read body: %w", err)
		}
		return Batch{}, &ValidationError{Reason: "expected { heartRates: [...] }: " + err.Error()}
	}
	if err := validate.Struct(p); err != nil {
		return Batch{}, fromValidator(err)
	}

	batch := Batch{Samples: make([]zone.Sample, 0, len(p.HeartRates))}
	for i, s := range p.HeartRates {
		day, err := parseSampleDate(s.Date)
		if err != nil {
			return Batch{}, &ValidationError{
				Field:  fmt.Sprintf("heartRates[%d].date", i),
				Reason: err.Error(),
			}
		}
		batch.Samples = append(batch.Samples, zone.Sample{Date: day, BPM: *s.BPM})
	}
	if p.TickSeconds != nil {
		batch.Tick = time.Duration(math.Round(*p.TickSeconds * float64(time.Second)))
	}
	return batch, nil
}

func parseSampleDate(s string) (zone.Day, error) {
	if d, err := zone.ParseDay(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return zone.DayOf(t), nil
}

// isJSONError reports whether err comes from the payload itself rather than
// from reading it.
func isJSONError(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ) || errors.Is(err, io.ErrUnexpectedEOF)
}

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "payload.")
	reason := fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return &ValidationError{Field: field, Reason: "failed " + reason}
}
