package classifier

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/cases"

	"tourismprj/internal/schema"
)

type encoder struct {
	numeric     []Scaler
	categorical []OneHot
	passthrough []string
	names       map[string]bool
}

func newEncoder(p Preprocess, s *schema.Schema) (*encoder, error) {
	e := &encoder{names: map[string]bool{}}
	used := map[string]bool{}
	claim := func(name string, numeric bool) error {
		f, ok := s.Field(name)
		if !ok {
			return incompatible("unknown feature %s", name)
		}
		if used[name] {
			return incompatible("feature %s is encoded twice", name)
		}
		if numeric && f.Kind == schema.KindCategorical {
			return incompatible("categorical feature %s used as numeric", name)
		}
		used[name] = true
		return nil
	}

	for _, sc := range p.Numeric {
		if err := claim(sc.Name, true); err != nil {
			return nil, err
		}
		if sc.Scale == 0 {
			sc.Scale = 1
		}
		e.numeric = append(e.numeric, sc)
		e.names[sc.Name] = true
	}
	for _, name := range p.Passthrough {
		if err := claim(name, true); err != nil {
			return nil, err
		}
		e.passthrough = append(e.passthrough, name)
		e.names[name] = true
	}
	for _, oh := range p.Categorical {
		if err := claim(oh.Name, false); err != nil {
			return nil, err
		}
		if len(oh.Categories) == 0 {
			return nil, incompatible("one-hot feature %s has no categories", oh.Name)
		}
		e.categorical = append(e.categorical, oh)
		for _, c := range oh.Categories {
			e.names[oh.Name+"="+c] = true
		}
	}
	if len(e.names) == 0 {
		return nil, incompatible("artifact uses no features")
	}
	return e, nil
}

func (e *encoder) has(name string) bool { return e.names[name] }

// encode turns a record into named model inputs. A category the artifact
// never saw encodes as all zeros.
func (e *encoder) encode(rec schema.Record) (map[string]float64, error) {
	x := make(map[string]float64, len(e.names))
	for _, sc := range e.numeric {
		v, err := rec.Float(sc.Name)
		if err != nil {
			return nil, err
		}
		x[sc.Name] = (v - sc.Mean) / sc.Scale
	}
	for _, name := range e.passthrough {
		v, err := rec.Float(name)
		if err != nil {
			return nil, err
		}
		x[name] = v
	}
	for _, oh := range e.categorical {
		v := rec.Get(oh.Name)
		for _, c := range oh.Categories {
			hot := 0.0
			if sameCategory(v, c) {
				hot = 1
			}
			x[oh.Name+"="+c] = hot
		}
	}
	for name, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %s encodes to a non-finite value", name)
		}
	}
	return x, nil
}

// sameCategory compares ignoring case, and numerically when both sides are
// numbers so "3" matches a category stored as "3.0".
func sameCategory(v, c string) bool {
	if cases.Fold().String(v) == cases.Fold().String(c) {
		return true
	}
	a, errA := strconv.ParseFloat(v, 64)
	b, errB := strconv.ParseFloat(c, 64)
	return errA == nil && errB == nil && a == b
}
